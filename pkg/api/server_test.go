package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/algoviz/pkg/cache"
	"github.com/matzehuels/algoviz/pkg/controller"
	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/render"
	"github.com/matzehuels/algoviz/pkg/scenario"
	"github.com/matzehuels/algoviz/pkg/state"
)

type fixture struct {
	cells    *state.Memory
	player   *scenario.Player
	history  *history.FileStore
	svgCache *cache.FileCache
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := history.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svgCache, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		cells:    state.NewMemory(),
		player:   scenario.NewPlayer(scenario.New("API", scenario.Insert(1, 2, 3))),
		history:  store,
		svgCache: svgCache,
	}
	f.handler = New(Config{
		Cells:   f.cells,
		Player:  f.player,
		History: store,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "metrics here")
		}),
		Logger:   log.New(io.Discard),
		SVGCache: svgCache,
	}).Handler()
	return f
}

// play runs the scenario to completion and records it.
func (f *fixture) play(t *testing.T) controller.Result {
	t.Helper()
	c, err := controller.New(controller.Config{
		DisplayName: "API",
		Run:         f.player.Routine,
		Reset:       f.player.Reset,
		Cells:       f.cells,
		Logger:      log.New(io.Discard),
		OnFinish:    history.Recorder(f.history, nil),
	})
	require.NoError(t, err)
	res, err := c.Run(context.Background())
	require.NoError(t, err)
	return res
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestState(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	snap := decode[state.Snapshot](t, rec)
	assert.Equal(t, state.StatusIdle, snap.Status)
	assert.Equal(t, state.DefaultSpeed, snap.Speed)
}

func TestCommands(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/commands/start", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, state.StatusRunning, decode[state.Snapshot](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/commands/pause", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, state.StatusPaused, decode[state.Snapshot](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/commands/restart", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "INVALID_TRANSITION", body.Code)
	assert.Equal(t, "cannot restart while paused", body.Error)

	rec = f.do(t, http.MethodPost, "/commands/jump", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_COMMAND", decode[errorBody](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/commands/start", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSpeed(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/speed", `{"speed": 2.5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2.5, decode[state.Snapshot](t, rec).Speed)

	for _, body := range []string{`{"speed": 0}`, `{"speed": -1}`, `nope`} {
		rec = f.do(t, http.MethodPut, "/speed", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestLayoutAndScenario(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[layout.Layout[int]](t, rec)
	assert.Empty(t, empty.Nodes)

	f.play(t)

	rec = f.do(t, http.MethodGet, "/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[layout.Layout[int]](t, rec)
	require.Len(t, l.Nodes, 3)
	assert.Equal(t, 2, l.Nodes[0].Value)
	assert.Equal(t, float64(layout.DefaultRootX), l.Nodes[0].X)
	assert.Len(t, l.Edges, 2)

	rec = f.do(t, http.MethodGet, "/layout.dot?heights=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "digraph AVL")
	assert.Contains(t, rec.Body.String(), `h=2 b=0`)

	rec = f.do(t, http.MethodGet, "/scenario", "")
	require.Equal(t, http.StatusOK, rec.Code)
	sc := decode[scenario.Scenario](t, rec)
	assert.Equal(t, "API", sc.Name)
}

func TestLayoutSVG(t *testing.T) {
	if testing.Short() {
		t.Skip("graphviz rendering is slow")
	}
	f := newFixture(t)
	f.play(t)

	rec := f.do(t, http.MethodGet, "/layout.svg", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "<svg")

	again := f.do(t, http.MethodGet, "/layout.svg", "")
	assert.Equal(t, "HIT", again.Header().Get("X-Cache"))
	assert.Equal(t, rec.Body.String(), again.Body.String())
}

func TestLayoutSVGServedFromCache(t *testing.T) {
	f := newFixture(t)
	f.play(t)

	key := render.SVGKey(f.player.DOT(render.Options{}))
	require.NoError(t, f.svgCache.Set(context.Background(), key, []byte("<svg>cached</svg>"), 0))

	rec := f.do(t, http.MethodGet, "/layout.svg", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "<svg>cached</svg>", rec.Body.String())
}

func TestRuns(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	res := f.play(t)

	rec = f.do(t, http.MethodGet, "/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[[]*history.Run](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)

	rec = f.do(t, http.MethodGet, "/runs/"+res.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	run := decode[history.Run](t, rec)
	assert.Equal(t, res.Log, run.Log)
	assert.Equal(t, res.Steps, run.Steps)

	rec = f.do(t, http.MethodGet, "/runs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN_NOT_FOUND", decode[errorBody](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/runs?limit=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsMounted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics here", rec.Body.String())
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan state.Snapshot, 4)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data: ")
			if !ok {
				continue
			}
			var snap state.Snapshot
			if json.Unmarshal([]byte(data), &snap) == nil {
				events <- snap
			}
		}
		close(events)
	}()

	first := <-events
	assert.Equal(t, state.StatusIdle, first.Status)

	require.NoError(t, controller.Begin(ctx, f.cells))
	select {
	case snap := <-events:
		assert.Equal(t, state.StatusRunning, snap.Status)
	case <-ctx.Done():
		t.Fatal("no event after start")
	}
}
