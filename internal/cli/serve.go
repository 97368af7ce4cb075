package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/algoviz/internal/metrics"
	"github.com/matzehuels/algoviz/pkg/api"
	"github.com/matzehuels/algoviz/pkg/controller"
	"github.com/matzehuels/algoviz/pkg/observability"
)

const shutdownTimeout = 5 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	noMetrics bool
	noCache   bool
	autostart bool
}

// serveCommand creates the serve command, which runs the controller loop
// and the HTTP API side by side.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [scenario.toml]",
		Short: "Serve the controller over HTTP",
		Long: `Serve the controller over HTTP.

The controller waits for a start command, plays the scenario and waits for
a restart, forever. Commands, speed changes and snapshots go through the
HTTP API; use 'algoviz ctl' or any HTTP client to drive it.

With the redis state backend several processes can share one controller
state. Each run is played by exactly one of them; the others watch it finish
and take part in later runs. A run left behind by a crashed process can be
discarded with --reset-state.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default: server.addr from config)")
	cmd.Flags().BoolVar(&opts.noMetrics, "no-metrics", false, "do not expose /metrics")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "do not cache rendered SVGs")
	cmd.Flags().BoolVar(&opts.autostart, "start", false, "start the first run immediately")

	return cmd
}

// runServe blocks until ctx is cancelled or the listener fails.
func (c *CLI) runServe(ctx context.Context, args []string, opts serveOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sc, err := loadScenario(args)
	if err != nil {
		return err
	}
	sess, err := c.openSession(ctx, cfg, sc, sessionOpts{stepDelay: -1, serving: true})
	if err != nil {
		return err
	}
	defer sess.Close()

	var metricsHandler http.Handler
	if cfg.Server.Metrics && !opts.noMetrics {
		m := metrics.New()
		m.Install()
		defer observability.Reset()
		metricsHandler = m.Handler()
	}

	svgCache, err := c.openCache(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer svgCache.Close()

	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}
	srv := api.New(api.Config{
		Cells:    sess.cells,
		Player:   sess.player,
		History:  sess.history,
		Layout:   cfg.Layout,
		Metrics:  metricsHandler,
		Logger:   c.Logger.WithPrefix("api"),
		SVGCache: svgCache,
	}).HTTPServer(addr)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		if err := sess.ctrl.Serve(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	printSuccess("Serving %s", StyleHighlight.Render(sc.Name))
	printKeyValue("Address", "http://"+ln.Addr().String())
	printKeyValue("State", cfg.State.Backend)
	printKeyValue("History", cfg.History.Backend)
	printNewline()
	if opts.autostart {
		if err := controller.Begin(ctx, sess.cells); err != nil {
			c.Logger.Warn("autostart failed", "err", err)
		}
	} else {
		printNextStep("Start", appName+" ctl start --addr "+ln.Addr().String())
	}

	if err := g.Wait(); err != nil {
		return err
	}
	c.Logger.Info("server stopped")
	return nil
}
