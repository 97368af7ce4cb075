package controller

import (
	"context"
	"strings"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/state"
)

// Command is an external request to move the controller between states.
type Command string

// Commands accepted by [Apply].
const (
	CommandStart   Command = "start"
	CommandPause   Command = "pause"
	CommandResume  Command = "resume"
	CommandRestart Command = "restart"
)

type transition struct {
	from, to state.Status
}

var transitions = map[Command]transition{
	CommandStart:   {state.StatusIdle, state.StatusRunning},
	CommandPause:   {state.StatusRunning, state.StatusPaused},
	CommandResume:  {state.StatusPaused, state.StatusRunning},
	CommandRestart: {state.StatusFinished, state.StatusIdle},
}

// Commands returns every command name.
func Commands() []Command {
	return []Command{CommandStart, CommandPause, CommandResume, CommandRestart}
}

// ParseCommand converts a case-insensitive name into a Command.
func ParseCommand(s string) (Command, error) {
	cmd := Command(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[cmd]; !ok {
		return "", apperrors.New(apperrors.ErrCodeInvalidCommand, "unknown command %q", s)
	}
	return cmd, nil
}

// Apply performs cmd against cells: a compare-and-set of the status followed
// by firing the resume signal. It returns an ErrCodeInvalidTransition error if
// the current status does not allow the command.
func Apply(ctx context.Context, cells state.Cells, cmd Command) error {
	tr, ok := transitions[cmd]
	if !ok {
		return apperrors.New(apperrors.ErrCodeInvalidCommand, "unknown command %q", cmd)
	}
	swapped, err := cells.CompareAndSetStatus(ctx, tr.from, tr.to)
	if err != nil {
		return err
	}
	if !swapped {
		cur, err := cells.Status(ctx)
		if err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrCodeInvalidTransition,
			"cannot %s while %s", cmd, cur)
	}
	return cells.Fire(ctx)
}

// Begin starts an idle controller.
func Begin(ctx context.Context, cells state.Cells) error {
	return Apply(ctx, cells, CommandStart)
}

// Pause pauses a running controller at its next pause check.
func Pause(ctx context.Context, cells state.Cells) error {
	return Apply(ctx, cells, CommandPause)
}

// Resume continues a paused controller.
func Resume(ctx context.Context, cells state.Cells) error {
	return Apply(ctx, cells, CommandResume)
}

// Restart returns a finished controller to idle.
func Restart(ctx context.Context, cells state.Cells) error {
	return Apply(ctx, cells, CommandRestart)
}

// Toggle picks the command a single play/pause control would send for the
// current status: start when idle, pause when running, resume when paused
// and restart when finished.
func Toggle(ctx context.Context, cells state.Cells) (Command, error) {
	st, err := cells.Status(ctx)
	if err != nil {
		return "", err
	}
	var cmd Command
	switch st {
	case state.StatusIdle:
		cmd = CommandStart
	case state.StatusRunning:
		cmd = CommandPause
	case state.StatusPaused:
		cmd = CommandResume
	default:
		cmd = CommandRestart
	}
	return cmd, Apply(ctx, cells, cmd)
}
