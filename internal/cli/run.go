package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/algoviz/pkg/history"
)

// runOpts holds the command-line flags for the run command.
type runOpts struct {
	speed     float64       // playback speed multiplier (0: scenario or config)
	stepDelay time.Duration // delay per step at speed 1
	noHistory bool          // do not record the run
	quiet     bool          // print the summary only
}

// runCommand creates the run command, which plays a scenario to completion
// without any interaction.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run [scenario.toml]",
		Short: "Play a scenario headless and print its trace",
		Long: `Play a scenario headless and print its trace.

The scenario is played from start to finish under the controller, then the
full log is printed. Without an argument the built-in AVL scenario is played.
Steps are not delayed unless --step-delay is given.

Finished runs are recorded in the configured history store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRun(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.speed, "speed", 0, "playback speed multiplier")
	cmd.Flags().DurationVar(&opts.stepDelay, "step-delay", 0, "delay after each step at speed 1")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record the run")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print the summary only")

	return cmd
}

// runRun loads the scenario, plays it and prints the result.
func (c *CLI) runRun(ctx context.Context, args []string, opts runOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}

	sess, err := c.openSession(ctx, cfg, sc, sessionOpts{
		speed:     opts.speed,
		stepDelay: opts.stepDelay,
		noHistory: opts.noHistory,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	prog := newProgress(c.Logger)
	res, err := sess.ctrl.Run(ctx)
	if err != nil {
		return err
	}
	prog.done("Played " + sc.Name)

	if !opts.quiet {
		printTrace(res.Log)
		printNewline()
	}

	if res.Failed() {
		printError("%s failed: %v", sc.Name, res.Err)
	} else {
		printSuccess("%s finished", sc.Name)
	}
	printRunStats(res.Steps, sess.player.Len(), res.Duration())

	if err := sess.player.Check(); err != nil {
		printWarning("tree invariant violated: %v", err)
	}

	if !opts.noHistory && cfg.History.Backend != history.BackendNone {
		printNewline()
		printNextStep("Inspect", appName+" history show "+res.RunID)
	}
	return res.Err
}
