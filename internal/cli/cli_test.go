package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/algoviz/internal/config"
	"github.com/matzehuels/algoviz/pkg/cache"
	"github.com/matzehuels/algoviz/pkg/controller"
	"github.com/matzehuels/algoviz/pkg/state"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", "algoviz", "svg"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}

	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", home)
	dir, err = cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".cache", "algoviz", "svg"); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)

	cfg := config.Default()
	cfg.Cache.Dir = filepath.Join(t.TempDir(), "svg")

	got, err := c.openCache(ctx, cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := got.(*cache.FileCache)
	if !ok {
		t.Fatalf("file backend opened %T", got)
	}
	if fc.Dir() != cfg.Cache.Dir {
		t.Errorf("Dir() = %q, want %q", fc.Dir(), cfg.Cache.Dir)
	}
	if _, err := os.Stat(cfg.Cache.Dir); err != nil {
		t.Errorf("cache dir not created: %v", err)
	}

	if got, _ := c.openCache(ctx, cfg, true); !isNull(got) {
		t.Errorf("--no-cache opened %T", got)
	}

	cfg.Cache.Backend = config.CacheNone
	if got, _ := c.openCache(ctx, cfg, false); !isNull(got) {
		t.Errorf("none backend opened %T", got)
	}
}

func TestLayoutSVGUsesCache(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if err := execute(t, "layout", "-f", "svg", "-o", "tree.svg"); err != nil {
		t.Fatal(err)
	}
	dir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("cache dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("rendered SVG was not cached")
	}

	first, err := os.ReadFile("tree.svg")
	if err != nil {
		t.Fatal(err)
	}
	if err := execute(t, "layout", "-f", "svg", "-o", "again.svg"); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile("again.svg")
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("cached SVG differs from the rendered one")
	}
}

func isNull(c cache.Cache) bool {
	switch c.(type) {
	case *cache.NullCache, cache.NullCache:
		return true
	}
	return false
}

func TestPrepareSharedLeavesLiveRun(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)

	for _, st := range []state.Status{state.StatusRunning, state.StatusPaused} {
		t.Run(string(st), func(t *testing.T) {
			cells := state.NewMemory()
			if err := controller.Begin(ctx, cells); err != nil {
				t.Fatal(err)
			}
			if ok, _ := cells.ClaimRun(ctx, "elsewhere"); !ok {
				t.Fatal("claim failed")
			}
			_, _ = cells.AppendStep(ctx, "live step")
			_ = cells.SetStatus(ctx, st)

			for _, serving := range []bool{false, true} {
				if err := c.prepareShared(ctx, cells, serving); err != nil {
					t.Fatal(err)
				}
			}
			snap, _ := cells.Snapshot(ctx)
			if snap.Status != st || snap.StepCount != 1 {
				t.Errorf("live run touched: status=%s steps=%d", snap.Status, snap.StepCount)
			}
			if owner, _ := cells.RunOwner(ctx); owner != "elsewhere" {
				t.Errorf("owner = %q, want elsewhere", owner)
			}
		})
	}
}

func TestPrepareSharedResetState(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)
	c.resetState = true

	cells := state.NewMemory()
	_ = controller.Begin(ctx, cells)
	_, _ = cells.ClaimRun(ctx, "crashed")
	_, _ = cells.AppendStep(ctx, "orphan")

	if err := c.prepareShared(ctx, cells, true); err != nil {
		t.Fatal(err)
	}
	snap, _ := cells.Snapshot(ctx)
	if snap.Status != state.StatusIdle || len(snap.Log) != 0 {
		t.Errorf("after --reset-state: status=%s log=%q", snap.Status, snap.Log)
	}
	if owner, _ := cells.RunOwner(ctx); owner != "" {
		t.Errorf("claim kept by %q", owner)
	}
}

func TestPrepareSharedFinished(t *testing.T) {
	ctx := context.Background()
	c := New(io.Discard, LogInfo)

	cells := state.NewMemory()
	_ = cells.SetStatus(ctx, state.StatusFinished)
	_ = cells.AppendLog(ctx, "old run")

	if err := c.prepareShared(ctx, cells, true); err != nil {
		t.Fatal(err)
	}
	if st, _ := cells.Status(ctx); st != state.StatusFinished {
		t.Errorf("serving should leave finished to the controller loop, got %s", st)
	}

	if err := c.prepareShared(ctx, cells, false); err != nil {
		t.Fatal(err)
	}
	snap, _ := cells.Snapshot(ctx)
	if snap.Status != state.StatusIdle || len(snap.Log) != 0 {
		t.Errorf("finished run not restarted: status=%s log=%q", snap.Status, snap.Log)
	}
}
