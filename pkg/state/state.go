// Package state provides the observable cells shared between an execution
// controller and the user interface that drives it.
//
// # Cells
//
// A [Cells] handle carries four values:
//
//   - status: one of [StatusIdle], [StatusRunning], [StatusPaused], [StatusFinished]
//   - resume signal: a monotonically increasing counter used as an edge event
//   - log: the growing list of step messages of the current run
//   - step count: the number of algorithm steps logged in the current run
//
// plus two presentation values carried over from the visualizer UI: the
// playback speed multiplier and the active pseudo-code line.
//
// # Runs
//
// Several controllers may share one set of cells, but only one plays a run.
// A controller takes the run with [Cells.ClaimRun] before invoking its
// routine; the claim is held until the status returns to idle. Moving the
// status to idle, by [Cells.SetStatus] or [Cells.CompareAndSetStatus], ends
// the run: the claim is released and the log, step count and active line
// are cleared in the same update.
//
// The controller never assumes how observers are notified. It only needs to
// get and set values and to wait for the resume signal to move past a value it
// has already seen ([Cells.WaitSignal]). Waiting on a counter rather than on a
// level means an edge that fires between a status check and the wait is never
// lost.
//
// # Backends
//
//   - [Memory]: in-process cells guarded by a mutex, with a broadcast channel
//     replaced on every signal.
//   - [Redis]: cells stored under a key prefix so that a UI in another
//     process can drive the controller; the signal uses INCR plus PUBLISH.
package state

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
)

// Status is the execution state of a controller.
type Status string

// Execution states.
const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Valid reports whether s is one of the four execution states.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusRunning, StatusPaused, StatusFinished:
		return true
	}
	return false
}

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// DefaultSpeed is the playback speed multiplier of fresh cells.
const DefaultSpeed = 1.0

// Snapshot is a consistent read of all cells.
type Snapshot struct {
	Status     Status   `json:"status"`
	Signal     uint64   `json:"signal"`
	Log        []string `json:"log"`
	StepCount  int      `json:"step_count"`
	Speed      float64  `json:"speed"`
	ActiveLine int      `json:"active_line"`
}

// Cells is the shared-state handle read and written by the controller and
// the UI layer. Implementations must be safe for concurrent use.
type Cells interface {
	// Status returns the current execution state.
	Status(ctx context.Context) (Status, error)

	// SetStatus stores a new execution state. It does not fire the signal.
	// Setting idle also ends the current run.
	SetStatus(ctx context.Context, s Status) error

	// CompareAndSetStatus sets the status to to if it currently equals from.
	// It reports whether the swap happened. Swapping to idle also ends the
	// current run.
	CompareAndSetStatus(ctx context.Context, from, to Status) (bool, error)

	// ClaimRun takes the current run for owner if the status is running or
	// paused and nobody holds it yet. A successful claim clears the log,
	// step count and active line. It reports whether the claim was taken.
	ClaimRun(ctx context.Context, owner string) (bool, error)

	// RunOwner returns the holder of the current run, or "" if unclaimed.
	RunOwner(ctx context.Context) (string, error)

	// Signal returns the current value of the resume signal counter.
	Signal(ctx context.Context) (uint64, error)

	// Fire increments the resume signal and wakes every waiter.
	Fire(ctx context.Context) error

	// WaitSignal blocks until the signal counter exceeds after and returns
	// the new value, or returns the context's error.
	WaitSignal(ctx context.Context, after uint64) (uint64, error)

	// AppendLog appends a line to the log without counting a step.
	AppendLog(ctx context.Context, line string) error

	// AppendStep appends a line to the log and increments the step count
	// as a single update.
	AppendStep(ctx context.Context, line string) (int, error)

	// Speed returns the playback speed multiplier.
	Speed(ctx context.Context) (float64, error)

	// SetSpeed stores the playback speed multiplier. It must be positive
	// and finite.
	SetSpeed(ctx context.Context, speed float64) error

	// SetActiveLine stores the pseudo-code line currently executing.
	SetActiveLine(ctx context.Context, line int) error

	// Snapshot returns all cells at once.
	Snapshot(ctx context.Context) (Snapshot, error)

	// Close releases backend resources.
	Close() error
}

func validateSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return apperrors.New(apperrors.ErrCodeInvalidInput, "speed must be positive and finite, got %v", speed)
	}
	return nil
}

// claimable reports whether a run in status s can be claimed.
func claimable(s Status) bool {
	return s == StatusRunning || s == StatusPaused
}
