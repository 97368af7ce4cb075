package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/algoviz/pkg/api"
	"github.com/matzehuels/algoviz/pkg/controller"
	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/state"
)

const (
	ctlRetries    = 3
	ctlRetryDelay = 200 * time.Millisecond
)

// ctlCommand creates the ctl command group, a remote control for serve.
func (c *CLI) ctlCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "ctl",
		Short: "Control a running algoviz server",
		Long: `Control a running algoviz server.

Commands are sent once; reads are retried on server errors.`,
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "server address (default: server.addr from config)")

	client := func() (*api.Client, error) {
		if addr == "" {
			cfg, err := c.loadConfig()
			if err != nil {
				return nil, err
			}
			addr = cfg.Server.Addr
		}
		base := addr
		if !strings.Contains(base, "://") {
			base = "http://" + base
		}
		return api.NewClient(base, api.WithRetry(ctlRetries, ctlRetryDelay)), nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print the controller state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := client()
			if err != nil {
				return err
			}
			snap, err := cl.State(cmd.Context())
			if err != nil {
				return err
			}
			printSnapshot(snap)
			return nil
		},
	})

	for _, name := range controller.Commands() {
		cmd.AddCommand(&cobra.Command{
			Use:   string(name),
			Short: fmt.Sprintf("Send the %s command", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cl, err := client()
				if err != nil {
					return err
				}
				return sendCommand(cmd.Context(), cl, name)
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "speed <multiplier>",
		Short: "Set the playback speed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			speed, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "speed %q is not a number", args[0])
			}
			cl, err := client()
			if err != nil {
				return err
			}
			snap, err := cl.SetSpeed(cmd.Context(), speed)
			if err != nil {
				return err
			}
			printSuccess("Speed set to %sx", StyleNumber.Render(strconv.FormatFloat(snap.Speed, 'g', -1, 64)))
			return nil
		},
	})

	return cmd
}

func sendCommand(ctx context.Context, cl *api.Client, name controller.Command) error {
	logger := loggerFromContext(ctx)
	logger.Debug("sending command", "command", name)

	snap, err := cl.Send(ctx, name)
	if err != nil {
		return err
	}
	printSuccess("%s %s %s", name, StyleDim.Render(iconArrow), statusStyle(snap.Status).Render(string(snap.Status)))
	return nil
}

// printSnapshot prints the cells of a snapshot followed by the latest log lines.
func printSnapshot(snap state.Snapshot) {
	printKeyValue("Status", statusStyle(snap.Status).Render(string(snap.Status)))
	printKeyValue("Steps", strconv.Itoa(snap.StepCount))
	printKeyValue("Speed", strconv.FormatFloat(snap.Speed, 'g', -1, 64)+"x")
	printKeyValue("Line", strconv.Itoa(snap.ActiveLine))

	const tail = 10
	lines := snap.Log
	if len(lines) > tail {
		printDetail("... %d earlier lines", len(lines)-tail)
		lines = lines[len(lines)-tail:]
	}
	if len(lines) > 0 {
		printNewline()
		printTrace(lines)
	}
}
