package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/render"
)

// Layout output formats.
const (
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output  string // output file (stdout when empty)
	format  string // json, dot or svg
	heights bool   // annotate DOT/SVG nodes with height and balance
	noCache bool   // always render SVG
}

// layoutCommand creates the layout command, which plays a scenario and
// writes the final tree.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := layoutOpts{format: formatJSON}

	cmd := &cobra.Command{
		Use:   "layout [scenario.toml]",
		Short: "Write the final tree of a scenario as JSON, DOT or SVG",
		Long: `Write the final tree of a scenario as JSON, DOT or SVG.

The scenario is played without delays in memory and is not recorded. The
JSON form holds the projected node positions and edges using the [layout]
settings of the config file. DOT and SVG are drawn with Graphviz; rendered
SVGs are cached by their DOT source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: json, dot, svg")
	cmd.Flags().BoolVar(&opts.heights, "heights", false, "show height and balance factor of each node")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not use the SVG cache")

	return cmd
}

// runLayout plays the scenario to completion and writes the tree.
func (c *CLI) runLayout(ctx context.Context, args []string, opts layoutOpts) error {
	switch opts.format {
	case formatJSON, formatDOT, formatSVG:
	default:
		return apperrors.New(apperrors.ErrCodeInvalidInput, "unknown format %q (want json, dot or svg)", opts.format)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}
	sess, err := c.openSession(ctx, cfg, sc, sessionOpts{noHistory: true, memory: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	res, err := sess.ctrl.Run(ctx)
	if err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("play %s: %w", sc.Name, res.Err)
	}

	var (
		data   []byte
		cached *bool
	)
	switch opts.format {
	case formatJSON:
		if data, err = layout.MarshalLayout(sess.player.Layout(cfg.Layout)); err != nil {
			return err
		}
		data = append(data, '\n')
	case formatDOT:
		data = []byte(sess.player.DOT(render.Options{ShowHeights: opts.heights}))
	case formatSVG:
		svgCache, err := c.openCache(ctx, cfg, opts.noCache)
		if err != nil {
			return err
		}
		defer svgCache.Close()

		spinner := newSpinnerWithContext(ctx, "Rendering SVG...")
		spinner.Start()
		var hit bool
		data, hit, err = render.RenderSVGCached(ctx, svgCache, sess.player.DOT(render.Options{ShowHeights: opts.heights}))
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return err
		}
		spinner.Stop()
		cached = &hit
	}

	if opts.output == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", opts.output, err)
	}

	printSuccess("Layout complete")
	printFile(opts.output)
	printRunStats(res.Steps, sess.player.Len(), res.Duration())
	if cached != nil {
		printCacheStatus(*cached)
	}
	return nil
}
