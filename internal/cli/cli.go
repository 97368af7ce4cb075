// Package cli implements the algoviz command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/algoviz/internal/config"
	"github.com/matzehuels/algoviz/pkg/buildinfo"
	"github.com/matzehuels/algoviz/pkg/cache"
	"github.com/matzehuels/algoviz/pkg/controller"
	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/scenario"
	"github.com/matzehuels/algoviz/pkg/state"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for display.
	appName = "algoviz"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogFatal = log.FatalLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	resetState bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "algoviz plays algorithms step by step",
		Long:         `algoviz runs an algorithm routine under a pausable controller and shows every step: headless, in a terminal player, or behind an HTTP API.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (default: ./.algoviz.toml or ~/.algoviz.toml)")
	root.PersistentFlags().BoolVar(&c.resetState, "reset-state", false, "discard a run in progress in shared (redis) state")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.ctlCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file named by --config, or the default
// search path when the flag is empty.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("config loaded", "state", cfg.State.Backend, "history", cfg.History.Backend)
	return cfg, nil
}

// =============================================================================
// Session Factory
// =============================================================================

// session bundles everything one controller needs.
type session struct {
	cells   state.Cells
	player  *scenario.Player
	history history.Store
	ctrl    *controller.Controller
}

// sessionOpts overrides config values for a single command.
type sessionOpts struct {
	speed     float64       // 0 keeps the scenario or config speed
	stepDelay time.Duration // negative keeps the scenario or config delay
	noHistory bool
	memory    bool // force in-process cells
	serving   bool // leave a finished shared run for the controller loop
}

// openSession wires cells, history and a controller for sc.
// Scenario settings take precedence over config; opts take precedence over both.
func (c *CLI) openSession(ctx context.Context, cfg *config.Config, sc *scenario.Scenario, opts sessionOpts) (*session, error) {
	cells, err := c.openCells(ctx, cfg, opts.memory, opts.serving)
	if err != nil {
		return nil, err
	}

	speed := cfg.Playback.Speed
	if sc.Speed > 0 {
		speed = sc.Speed
	}
	if opts.speed > 0 {
		speed = opts.speed
	}
	if err := cells.SetSpeed(ctx, speed); err != nil {
		cells.Close()
		return nil, err
	}

	delay := cfg.Playback.StepDelay
	if sc.StepDelay > 0 {
		delay = sc.StepDelay
	}
	if opts.stepDelay >= 0 {
		delay = opts.stepDelay
	}

	var store history.Store = history.NewNullStore()
	if !opts.noHistory {
		if store, err = history.Open(ctx, cfg.History); err != nil {
			cells.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	player := scenario.NewPlayer(sc)
	ctrl, err := controller.New(controller.Config{
		DisplayName: sc.Name,
		Run:         player.Routine,
		Reset:       player.Reset,
		Cells:       cells,
		Logger:      c.Logger,
		StepDelay:   delay,
		OnFinish: history.Recorder(store, func(err error) {
			c.Logger.Warn("could not record run", "err", err)
		}),
	})
	if err != nil {
		store.Close()
		cells.Close()
		return nil, err
	}

	c.Logger.Debug("session ready", "scenario", sc.Name, "speed", speed, "step_delay", delay)
	return &session{cells: cells, player: player, history: store, ctrl: ctrl}, nil
}

// Close releases the history store and the cells.
func (s *session) Close() error {
	herr := s.history.Close()
	if err := s.cells.Close(); err != nil {
		return err
	}
	return herr
}

// openCells creates the configured state backend and prepares shared cells
// for a new run, see [CLI.prepareShared].
func (c *CLI) openCells(ctx context.Context, cfg *config.Config, memory, serving bool) (state.Cells, error) {
	if memory || cfg.State.Backend != config.StateRedis {
		return state.NewMemory(), nil
	}

	cells, err := state.DialRedis(ctx, cfg.State.RedisURL, cfg.State.KeyPrefix)
	if err != nil {
		return nil, err
	}
	if err := c.prepareShared(ctx, cells, serving); err != nil {
		cells.Close()
		return nil, err
	}
	return cells, nil
}

// prepareShared handles cells left behind by another process. A finished run
// nobody restarted is restarted, unless serving: the controller loop does
// that itself. A run in progress belongs to another process and is left
// alone unless --reset-state is given.
func (c *CLI) prepareShared(ctx context.Context, cells state.Cells, serving bool) error {
	st, err := cells.Status(ctx)
	if err != nil {
		return err
	}
	switch st {
	case state.StatusFinished:
		if serving && !c.resetState {
			return nil
		}
		c.Logger.Info("restarting finished shared run")
		err := controller.Restart(ctx, cells)
		if apperrors.Is(err, apperrors.ErrCodeInvalidTransition) {
			// Restarted by someone else meanwhile.
			return nil
		}
		return err
	case state.StatusRunning, state.StatusPaused:
		owner, err := cells.RunOwner(ctx)
		if err != nil {
			return err
		}
		if !c.resetState {
			c.Logger.Warn("a run is in progress in shared state", "status", st, "run", owner,
				"hint", "pass --reset-state to discard it")
			return nil
		}
		c.Logger.Warn("discarding shared run", "status", st, "run", owner)
		if err := cells.SetStatus(ctx, state.StatusIdle); err != nil {
			return err
		}
		return cells.Fire(ctx)
	}
	return nil
}

// =============================================================================
// Render Cache
// =============================================================================

// openCache creates the configured SVG cache. A file cache that cannot be
// created degrades to no caching.
func (c *CLI) openCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		return cache.DialRedisCache(ctx, cfg.State.RedisURL, cfg.State.KeyPrefix)
	}

	dir := cfg.Cache.Dir
	if dir == "" {
		d, err := cacheDir()
		if err != nil {
			c.Logger.Debug("no cache directory", "err", err)
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("render cache disabled", "dir", dir, "err", err)
		return cache.NewNullCache(), nil
	}
	return fc, nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/algoviz/svg).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName, "svg"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName, "svg"), nil
}

// =============================================================================
// Scenarios
// =============================================================================

// loadScenario reads the scenario file in args, or returns the built-in
// scenario when args is empty.
func loadScenario(args []string) (*scenario.Scenario, error) {
	if len(args) == 0 {
		return scenario.Default(), nil
	}
	return scenario.Load(args[0])
}
