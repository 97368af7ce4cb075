package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// playOpts holds the command-line flags for the play command.
type playOpts struct {
	speed     float64
	autostart bool
}

// playCommand creates the play command, an interactive terminal player.
func (c *CLI) playCommand() *cobra.Command {
	var opts playOpts

	cmd := &cobra.Command{
		Use:   "play [scenario.toml]",
		Short: "Play a scenario in the terminal",
		Long: `Play a scenario in the terminal.

Keys:
  space   start, pause, resume or restart
  r       restart a finished run
  + / -   double or halve the playback speed
  q       quit

Each finished run is recorded in the configured history store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlay(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.speed, "speed", 0, "initial playback speed multiplier")
	cmd.Flags().BoolVar(&opts.autostart, "start", false, "start playing immediately")

	return cmd
}

// runPlay runs the controller loop in the background while the TUI owns
// the terminal. Log output is silenced for the lifetime of the program.
func (c *CLI) runPlay(ctx context.Context, args []string, opts playOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}
	sess, err := c.openSession(ctx, cfg, sc, sessionOpts{speed: opts.speed, stepDelay: -1})
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	level := c.Logger.GetLevel()
	c.SetLogLevel(LogFatal)
	defer c.SetLogLevel(level)

	done := make(chan error, 1)
	go func() { done <- sess.ctrl.Serve(ctx) }()

	model := NewPlayerModel(ctx, sess.cells, sess.player)
	model.startOnInit = opts.autostart
	_, runErr := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}
