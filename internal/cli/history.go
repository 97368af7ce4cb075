package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/algoviz/internal/config"
	"github.com/matzehuels/algoviz/pkg/history"
)

// historyCommand creates the history command group for recorded runs.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withHistory(cmd.Context(), func(s history.Store) error {
				runs, err := s.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					printInfo("No runs recorded yet")
					printNextStep("Record one", appName+" run")
					return nil
				}
				fmt.Println(renderRunTable(runs, time.Now()))
				return nil
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", config.DefaultHistoryLimit, "maximum number of runs (0: all)")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withHistory(cmd.Context(), func(s history.Store) error {
				run, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRun(run)
				return nil
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

// withHistory opens the configured store for the duration of fn.
func (c *CLI) withHistory(ctx context.Context, fn func(history.Store) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// renderRunTable formats runs as a table with times relative to now.
func renderRunTable(runs []*history.Run, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := iconSuccess
		if r.Failed() {
			result = iconError
		}
		rows = append(rows, []string{
			r.ID,
			r.Algorithm,
			humanize.Comma(int64(r.Steps)),
			r.Duration().Round(time.Millisecond).String(),
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			result,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Algorithm", "Steps", "Duration", "Started", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 5 && row < len(runs) && runs[row].Failed() {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			if col == 5 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			if col == 0 || col == 4 {
				return StyleDim
			}
			return lipgloss.NewStyle()
		})
	return t.Render()
}

// printRun prints a run's metadata and its full trace.
func printRun(r *history.Run) {
	fmt.Println(StyleTitle.Render(r.Algorithm))
	printKeyValue("Run", r.ID)
	printKeyValue("Started", r.StartedAt.Local().Format(time.DateTime)+" "+StyleDim.Render("("+humanize.Time(r.StartedAt)+")"))
	printKeyValue("Duration", r.Duration().Round(time.Millisecond).String())
	printKeyValue("Steps", strconv.Itoa(r.Steps))
	if r.Failed() {
		printKeyValue("Error", StyleError.Render(r.Error))
	}
	printNewline()
	printTrace(r.Log)
}
