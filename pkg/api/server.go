// Package api exposes a running visualization over HTTP: state snapshots,
// commands, playback speed, the current tree drawing and run history.
//
// # Routes
//
//	GET  /healthz              liveness
//	GET  /state                cells snapshot
//	GET  /events               server-sent snapshots, one per resume signal
//	POST /commands/{command}   start | pause | resume | restart
//	PUT  /speed                {"speed": 2.5}
//	GET  /scenario             the scenario being played
//	GET  /layout               node positions and edges (JSON)
//	GET  /layout.dot           Graphviz DOT
//	GET  /layout.svg           rendered SVG
//	GET  /runs?limit=N         recorded runs, newest first
//	GET  /runs/{id}            one recorded run
//	GET  /metrics              Prometheus metrics, if configured
//
// Errors are JSON objects {"code": "...", "error": "..."} with a status code
// derived from the error code. [Client] is the matching remote control.
package api

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/algoviz/pkg/cache"
	"github.com/matzehuels/algoviz/pkg/history"
	"github.com/matzehuels/algoviz/pkg/layout"
	"github.com/matzehuels/algoviz/pkg/scenario"
	"github.com/matzehuels/algoviz/pkg/state"
)

// Config configures a Server.
type Config struct {
	Cells   state.Cells      // required
	Player  *scenario.Player // required
	History history.Store    // defaults to a NullStore
	Layout  layout.Options
	Metrics http.Handler // mounted at /metrics when set
	Logger  *log.Logger

	// SVGCache holds rendered /layout.svg responses. Defaults to a NullCache.
	SVGCache cache.Cache
}

// Server serves the HTTP API.
type Server struct {
	cells    state.Cells
	player   *scenario.Player
	history  history.Store
	layout   layout.Options
	metrics  http.Handler
	logger   *log.Logger
	svgCache cache.Cache
}

// New creates a Server.
func New(cfg Config) *Server {
	s := &Server{
		cells:    cfg.Cells,
		player:   cfg.Player,
		history:  cfg.History,
		layout:   cfg.Layout,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		svgCache: cfg.SVGCache,
	}
	if s.history == nil {
		s.history = history.NewNullStore()
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.svgCache == nil {
		s.svgCache = cache.NewNullCache()
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/state", s.handleState)
	r.Get("/events", s.handleEvents)
	r.Post("/commands/{command}", s.handleCommand)
	r.Put("/speed", s.handleSpeed)
	r.Get("/scenario", s.handleScenario)

	r.Get("/layout", s.handleLayout)
	r.Get("/layout.dot", s.handleDOT)
	r.Get("/layout.svg", s.handleSVG)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.handleListRuns)
		r.Get("/{id}", s.handleGetRun)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// HTTPServer wraps the handler in an http.Server with conservative timeouts.
// The write timeout is left unset so /events streams stay open.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
