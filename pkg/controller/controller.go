package controller

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/observability"
	"github.com/matzehuels/algoviz/pkg/state"
)

// Log lines written by the controller itself. They do not count as steps.
const (
	msgStarting = "Starting %s..."
	msgError    = "Error: %v"
	MsgFinished = "Run finished."
)

// RunFunc is an algorithm routine. It reports steps through c and should call
// c.PauseIfNeeded between steps.
type RunFunc func(ctx context.Context, c *Controller) error

// ResetFunc clears algorithm-specific state when a finished run is restarted.
type ResetFunc func(ctx context.Context) error

// Config configures a Controller.
type Config struct {
	// DisplayName names the algorithm in log lines and history records.
	DisplayName string

	// Run is the algorithm routine. Required.
	Run RunFunc

	// Reset is called on the finished → idle edge. Optional.
	Reset ResetFunc

	// Cells is the shared-state handle. Required.
	Cells state.Cells

	// Logger receives diagnostic output. Defaults to log.Default().
	Logger *log.Logger

	// StepDelay is the pause inserted by Stepf after each step at speed 1.
	// The effective delay is StepDelay divided by the speed cell.
	StepDelay time.Duration

	// OnFinish is called with the result of every run once it reaches
	// finished, before the controller waits for a restart. Optional.
	OnFinish func(ctx context.Context, res Result)
}

// Result describes a completed run.
type Result struct {
	RunID       string
	DisplayName string
	Steps       int
	Log         []string
	Err         error // routine failure, already logged; never propagated
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Failed reports whether the routine ended with an error or panic.
func (r Result) Failed() bool { return r.Err != nil }

// Duration returns the wall-clock time of the run.
func (r Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Controller drives one algorithm routine at a time through the
// idle/running/paused/finished lifecycle.
type Controller struct {
	name      string
	run       RunFunc
	reset     ResetFunc
	cells     state.Cells
	logger    *log.Logger
	stepDelay time.Duration
	onFinish  func(context.Context, Result)

	// played is set once a run of this controller finished and cleared by
	// the reset hook.
	played atomic.Bool
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if err := apperrors.ValidateDisplayName(cfg.DisplayName); err != nil {
		return nil, err
	}
	if cfg.Run == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "controller requires a run function")
	}
	if cfg.Cells == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "controller requires state cells")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		name:      cfg.DisplayName,
		run:       cfg.Run,
		reset:     cfg.Reset,
		cells:     cfg.Cells,
		logger:    logger.WithPrefix(cfg.DisplayName),
		stepDelay: cfg.StepDelay,
		onFinish:  cfg.OnFinish,
	}, nil
}

// DisplayName returns the algorithm name.
func (c *Controller) DisplayName() string { return c.name }

// Cells returns the shared-state handle.
func (c *Controller) Cells() state.Cells { return c.cells }

// =============================================================================
// Lifecycle
// =============================================================================

// Start performs one run and then blocks until the run is restarted.
// It returns the run's result once the restart reset has completed.
func (c *Controller) Start(ctx context.Context) (Result, error) {
	res, err := c.Run(ctx)
	if err != nil {
		return res, err
	}
	return res, c.WaitUntilRestart(ctx)
}

// Run moves the status from idle to running (if not already started by an
// external command), claims the run, invokes the routine and leaves the
// status at finished.
//
// Routine failures are returned in Result.Err, not as an error. Run refuses
// to start while the previous run is finished and not yet restarted, and
// returns an ErrCodeRunInProgress error when another controller sharing the
// cells holds the run.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:       uuid.NewString(),
		DisplayName: c.name,
	}
	if err := c.acquire(ctx, res.RunID); err != nil {
		return Result{}, err
	}
	res.StartedAt = time.Now()

	logger := c.logger.With("run", res.RunID[:8])
	hooks := observability.Controller()
	hooks.OnRunStart(ctx, c.name, res.RunID)
	logger.Info("run started")

	if err := c.cells.AppendLog(ctx, fmt.Sprintf(msgStarting, c.name)); err != nil {
		return res, err
	}

	res.Err = c.invoke(ctx)
	if res.Err != nil {
		if ctx.Err() != nil {
			// Shutdown, not a routine failure: leave the status as is.
			return res, ctx.Err()
		}
		logger.Error("routine failed", "err", res.Err)
		if err := c.cells.AppendLog(ctx, fmt.Sprintf(msgError, res.Err)); err != nil {
			return res, err
		}
	}

	if err := c.cells.AppendLog(ctx, MsgFinished); err != nil {
		return res, err
	}
	if err := c.cells.SetStatus(ctx, state.StatusFinished); err != nil {
		return res, err
	}
	if err := c.cells.Fire(ctx); err != nil {
		return res, err
	}

	snap, err := c.cells.Snapshot(ctx)
	if err != nil {
		return res, err
	}
	res.Steps = snap.StepCount
	res.Log = snap.Log
	res.FinishedAt = time.Now()

	c.played.Store(true)
	hooks.OnRunComplete(ctx, c.name, res.Steps, res.Duration(), res.Err)
	logger.Info("run finished", "steps", res.Steps, "duration", res.Duration().Round(time.Millisecond))

	if c.onFinish != nil {
		c.onFinish(ctx, res)
	}
	return res, nil
}

// acquire makes sure the controller may run and takes the run for runID.
// Idle is switched to running; running and paused (set by an external
// start) are accepted as is. A reset still owed from this controller's
// previous run is done before the routine starts.
func (c *Controller) acquire(ctx context.Context, runID string) error {
	if err := c.start(ctx); err != nil {
		return err
	}
	ok, err := c.cells.ClaimRun(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		owner, err := c.cells.RunOwner(ctx)
		if err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrCodeRunInProgress,
			"%s is played by another controller (run %s)", c.name, shortID(owner))
	}
	if c.played.Load() {
		return c.resetAlgorithm(ctx)
	}
	return nil
}

func (c *Controller) start(ctx context.Context) error {
	st, err := c.cells.Status(ctx)
	if err != nil {
		return err
	}
	switch st {
	case state.StatusRunning, state.StatusPaused:
		return nil
	case state.StatusIdle:
		ok, err := c.cells.CompareAndSetStatus(ctx, state.StatusIdle, state.StatusRunning)
		if err != nil {
			return err
		}
		if !ok {
			// Someone else moved the status in between; re-evaluate.
			return c.start(ctx)
		}
		return c.cells.Fire(ctx)
	default:
		return apperrors.New(apperrors.ErrCodeInvalidTransition,
			"cannot start %s while %s; restart first", c.name, st)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// invoke calls the routine, converting a panic into an error.
func (c *Controller) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.run(ctx, c)
}

// Serve repeatedly waits for an external start command, runs the routine and
// waits for the restart. A run held by another controller sharing the cells
// is only watched until it finishes. Serve returns only when ctx is done or
// the cells fail.
func (c *Controller) Serve(ctx context.Context) error {
	for {
		st, err := c.waitUntil(ctx, func(s state.Status) bool { return s != state.StatusIdle })
		if err != nil {
			return err
		}
		if st == state.StatusFinished {
			// Left over from an earlier process sharing the cells.
			if err := c.WaitUntilRestart(ctx); err != nil {
				return err
			}
			continue
		}

		_, err = c.Start(ctx)
		if apperrors.Is(err, apperrors.ErrCodeRunInProgress) || apperrors.Is(err, apperrors.ErrCodeInvalidTransition) {
			// Another controller took the run, or already finished it.
			c.logger.Debug("watching run of another controller")
			_, err = c.waitUntil(ctx, func(s state.Status) bool {
				return s == state.StatusIdle || s == state.StatusFinished
			})
		}
		if err != nil {
			return err
		}
	}
}

// =============================================================================
// Routine primitives
// =============================================================================

// Log appends msg to the log and increments the step count.
func (c *Controller) Log(ctx context.Context, msg string) error {
	n, err := c.cells.AppendStep(ctx, msg)
	if err != nil {
		return err
	}
	observability.Controller().OnStep(ctx, c.name)
	c.logger.Debug(msg, "step", n)
	return nil
}

// Logf is Log with fmt.Sprintf formatting.
func (c *Controller) Logf(ctx context.Context, format string, args ...any) error {
	return c.Log(ctx, fmt.Sprintf(format, args...))
}

// Stepf logs a step, waits the configured step delay and then honors a
// pending pause. It is the usual way for a routine to report progress.
func (c *Controller) Stepf(ctx context.Context, format string, args ...any) error {
	if err := c.Logf(ctx, format, args...); err != nil {
		return err
	}
	if err := c.Delay(ctx, c.stepDelay); err != nil {
		return err
	}
	return c.PauseIfNeeded(ctx)
}

// PauseIfNeeded suspends the calling routine while the status is paused.
func (c *Controller) PauseIfNeeded(ctx context.Context) error {
	st, err := c.cells.Status(ctx)
	if err != nil {
		return err
	}
	if st != state.StatusPaused {
		return nil
	}

	hooks := observability.Controller()
	hooks.OnPause(ctx, c.name)
	c.logger.Debug("paused")
	start := time.Now()

	if err := c.WaitUntilResume(ctx); err != nil {
		return err
	}

	waited := time.Since(start)
	hooks.OnResume(ctx, c.name, waited)
	c.logger.Debug("resumed", "waited", waited.Round(time.Millisecond))
	return nil
}

// WaitUntilResume blocks until the status reads running at a resume signal.
func (c *Controller) WaitUntilResume(ctx context.Context) error {
	_, err := c.waitUntil(ctx, func(s state.Status) bool { return s == state.StatusRunning })
	return err
}

// WaitUntilRestart blocks until a restart moved the status from finished to
// idle, then calls the reset hook. The cells clear the log and step count in
// the same update that sets idle.
//
// Running is accepted as well: it is only reachable from finished through
// idle, so a restart followed by a start that both fired before this waiter
// woke still counts as the restart.
func (c *Controller) WaitUntilRestart(ctx context.Context) error {
	if _, err := c.waitUntil(ctx, func(s state.Status) bool {
		return s == state.StatusIdle || s == state.StatusRunning
	}); err != nil {
		return err
	}
	if err := c.resetAlgorithm(ctx); err != nil {
		return err
	}
	c.logger.Debug("restarted")
	return nil
}

func (c *Controller) resetAlgorithm(ctx context.Context) error {
	c.played.Store(false)
	if c.reset == nil {
		return nil
	}
	if err := c.reset(ctx); err != nil {
		return fmt.Errorf("reset %s: %w", c.name, err)
	}
	return nil
}

// waitUntil checks the status, then blocks on the resume signal and re-checks
// only when it fires. The signal value is read before the status, so an edge
// that fires between the check and the wait wakes the wait immediately.
func (c *Controller) waitUntil(ctx context.Context, done func(state.Status) bool) (state.Status, error) {
	seen, err := c.cells.Signal(ctx)
	if err != nil {
		return "", err
	}
	for {
		st, err := c.cells.Status(ctx)
		if err != nil {
			return "", err
		}
		if done(st) {
			return st, nil
		}
		if seen, err = c.cells.WaitSignal(ctx, seen); err != nil {
			return "", err
		}
	}
}

// Delay sleeps for base divided by the current speed multiplier. Very low
// speeds are capped at the longest representable duration.
func (c *Controller) Delay(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return ctx.Err()
	}
	speed, err := c.cells.Speed(ctx)
	if err != nil {
		return err
	}
	if speed <= 0 || math.IsNaN(speed) {
		speed = state.DefaultSpeed
	}

	t := time.NewTimer(scaleDelay(base, speed))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func scaleDelay(base time.Duration, speed float64) time.Duration {
	d := float64(base) / speed
	if d >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(d)
}

// SetActiveLine publishes the pseudo-code line the routine is executing.
func (c *Controller) SetActiveLine(ctx context.Context, line int) error {
	return c.cells.SetActiveLine(ctx, line)
}
