package state

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	snap, err := m.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, DefaultSpeed, snap.Speed)
	assert.Empty(t, snap.Log)
	assert.NotNil(t, snap.Log)
	assert.Zero(t, snap.StepCount)
	assert.Zero(t, snap.Signal)
}

func TestMemoryCompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.CompareAndSetStatus(ctx, StatusRunning, StatusPaused)
	require.NoError(t, err)
	assert.False(t, ok, "swap from wrong state must fail")

	ok, err = m.CompareAndSetStatus(ctx, StatusIdle, StatusRunning)
	require.NoError(t, err)
	assert.True(t, ok)

	st, _ := m.Status(ctx)
	assert.Equal(t, StatusRunning, st)
}

func TestMemoryLogAndSteps(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.AppendLog(ctx, "starting"))
	n, err := m.AppendStep(ctx, "compare 10")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = m.AppendStep(ctx, "rotate")
	assert.Equal(t, 2, n)

	snap, _ := m.Snapshot(ctx)
	assert.Equal(t, []string{"starting", "compare 10", "rotate"}, snap.Log)
	assert.Equal(t, 2, snap.StepCount)

	// Snapshots are copies.
	snap.Log[0] = "mutated"
	again, _ := m.Snapshot(ctx)
	assert.Equal(t, "starting", again.Log[0])

	require.NoError(t, m.SetActiveLine(ctx, 7))
	require.NoError(t, m.SetStatus(ctx, StatusIdle))
	snap, _ = m.Snapshot(ctx)
	assert.Empty(t, snap.Log)
	assert.Zero(t, snap.StepCount)
	assert.Zero(t, snap.ActiveLine)
}

func TestMemorySpeed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetSpeed(ctx, 2.5))
	s, _ := m.Speed(ctx)
	assert.Equal(t, 2.5, s)

	invalid := []struct {
		name  string
		speed float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"NaN", math.NaN()},
		{"+Inf", math.Inf(1)},
		{"-Inf", math.Inf(-1)},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, m.SetSpeed(ctx, tt.speed))
			s, _ := m.Speed(ctx)
			assert.Equal(t, 2.5, s, "rejected speed must not be stored")
		})
	}
}

func TestMemoryClaimRun(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.ClaimRun(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "an idle run cannot be claimed")

	require.NoError(t, m.SetStatus(ctx, StatusFinished))
	require.NoError(t, m.AppendLog(ctx, "stale"))
	_, _ = m.AppendStep(ctx, "stale step")
	require.NoError(t, m.SetStatus(ctx, StatusRunning))

	ok, err = m.ClaimRun(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	snap, _ := m.Snapshot(ctx)
	assert.Empty(t, snap.Log, "a claim starts from an empty log")
	assert.Zero(t, snap.StepCount)

	ok, _ = m.ClaimRun(ctx, "b")
	assert.False(t, ok, "a held run cannot be claimed again")
	owner, _ := m.RunOwner(ctx)
	assert.Equal(t, "a", owner)

	// Pausing keeps the claim.
	ok, _ = m.CompareAndSetStatus(ctx, StatusRunning, StatusPaused)
	require.True(t, ok)
	owner, _ = m.RunOwner(ctx)
	assert.Equal(t, "a", owner)
}

func TestMemoryIdleEndsRun(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SetStatus(ctx, StatusRunning))
	ok, _ := m.ClaimRun(ctx, "a")
	require.True(t, ok)
	_, _ = m.AppendStep(ctx, "step")
	require.NoError(t, m.SetActiveLine(ctx, 3))
	require.NoError(t, m.SetStatus(ctx, StatusFinished))

	snap, _ := m.Snapshot(ctx)
	assert.Equal(t, []string{"step"}, snap.Log, "finished keeps the log")

	ok, err := m.CompareAndSetStatus(ctx, StatusFinished, StatusIdle)
	require.NoError(t, err)
	require.True(t, ok)

	snap, _ = m.Snapshot(ctx)
	assert.Empty(t, snap.Log)
	assert.Zero(t, snap.StepCount)
	assert.Zero(t, snap.ActiveLine)
	owner, _ := m.RunOwner(ctx)
	assert.Empty(t, owner, "idle releases the claim")

	require.NoError(t, m.SetStatus(ctx, StatusRunning))
	ok, _ = m.ClaimRun(ctx, "b")
	assert.True(t, ok, "the next run can be claimed")
}

func TestMemoryWaitSignalReturnsImmediatelyWhenAhead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Fire(ctx))

	got, err := m.WaitSignal(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)
}

func TestMemoryWaitSignalWakesAllWaiters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const waiters = 5
	var wg sync.WaitGroup
	results := make(chan uint64, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.WaitSignal(ctx, 0)
			if err == nil {
				results <- v
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.Fire(ctx))
	wg.Wait()
	close(results)

	count := 0
	for v := range results {
		assert.Equal(t, uint64(1), v)
		count++
	}
	assert.Equal(t, waiters, count)
}

func TestMemoryWaitSignalContextCancel(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.WaitSignal(ctx, 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"idle", "running", "paused", "finished"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}
	_, err := ParseStatus("stopped")
	assert.Error(t, err)
}
