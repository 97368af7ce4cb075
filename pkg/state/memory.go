package state

import (
	"context"
	"sync"
)

// Memory is an in-process implementation of [Cells].
// The zero value is not usable; use [NewMemory].
type Memory struct {
	mu         sync.Mutex
	status     Status
	owner      string
	signal     uint64
	fired      chan struct{} // closed and replaced on every Fire
	log        []string
	steps      int
	speed      float64
	activeLine int
}

// NewMemory creates cells in the idle state.
func NewMemory() *Memory {
	return &Memory{
		status: StatusIdle,
		fired:  make(chan struct{}),
		speed:  DefaultSpeed,
	}
}

// Status returns the current execution state.
func (m *Memory) Status(context.Context) (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, nil
}

// SetStatus stores s. Setting idle ends the current run.
func (m *Memory) SetStatus(_ context.Context, s Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStatusLocked(s)
	return nil
}

// CompareAndSetStatus swaps the status from from to to.
func (m *Memory) CompareAndSetStatus(_ context.Context, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != from {
		return false, nil
	}
	m.setStatusLocked(to)
	return true, nil
}

func (m *Memory) setStatusLocked(s Status) {
	m.status = s
	if s == StatusIdle {
		m.owner = ""
		m.resetRunLocked()
	}
}

// ClaimRun takes the current run for owner.
func (m *Memory) ClaimRun(_ context.Context, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !claimable(m.status) || m.owner != "" {
		return false, nil
	}
	m.owner = owner
	m.resetRunLocked()
	return true, nil
}

// RunOwner returns the holder of the current run.
func (m *Memory) RunOwner(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner, nil
}

// Signal returns the resume signal counter.
func (m *Memory) Signal(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signal, nil
}

// Fire increments the signal and wakes every waiter.
func (m *Memory) Fire(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signal++
	close(m.fired)
	m.fired = make(chan struct{})
	return nil
}

// WaitSignal blocks until the signal exceeds after.
func (m *Memory) WaitSignal(ctx context.Context, after uint64) (uint64, error) {
	for {
		m.mu.Lock()
		sig, fired := m.signal, m.fired
		m.mu.Unlock()
		if sig > after {
			return sig, nil
		}

		select {
		case <-fired:
		case <-ctx.Done():
			return after, ctx.Err()
		}
	}
}

// AppendLog appends a line without counting a step.
func (m *Memory) AppendLog(_ context.Context, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, line)
	return nil
}

// AppendStep appends a line and counts a step.
func (m *Memory) AppendStep(_ context.Context, line string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, line)
	m.steps++
	return m.steps, nil
}

func (m *Memory) resetRunLocked() {
	m.log = nil
	m.steps = 0
	m.activeLine = 0
}

// Speed returns the playback speed multiplier.
func (m *Memory) Speed(context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed, nil
}

// SetSpeed stores the playback speed multiplier.
func (m *Memory) SetSpeed(_ context.Context, speed float64) error {
	if err := validateSpeed(speed); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = speed
	return nil
}

// SetActiveLine stores the active pseudo-code line.
func (m *Memory) SetActiveLine(_ context.Context, line int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeLine = line
	return nil
}

// Snapshot returns a copy of all cells.
func (m *Memory) Snapshot(context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Status:     m.status,
		Signal:     m.signal,
		Log:        append([]string{}, m.log...),
		StepCount:  m.steps,
		Speed:      m.speed,
		ActiveLine: m.activeLine,
	}, nil
}

// Close does nothing for in-memory cells.
func (m *Memory) Close() error { return nil }

// Ensure Memory implements Cells.
var _ Cells = (*Memory)(nil)
