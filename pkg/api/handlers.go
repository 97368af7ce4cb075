package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/algoviz/pkg/controller"
	apperrors "github.com/matzehuels/algoviz/pkg/errors"
	"github.com/matzehuels/algoviz/pkg/render"
	"github.com/matzehuels/algoviz/pkg/state"
)

// eventInterval bounds how long /events waits for a signal before checking
// whether steps were logged in the meantime.
const eventInterval = 250 * time.Millisecond

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 10

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// SpeedRequest is the body of PUT /speed.
type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.GetCode(err)
	if code == "" {
		code = apperrors.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Code: string(code), Error: apperrors.UserMessage(err)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.cells.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd, err := controller.ParseCommand(chi.URLParam(r, "command"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := controller.Apply(r.Context(), s.cells, cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("command applied", "command", cmd)
	s.handleState(w, r)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode speed"))
		return
	}
	if err := s.cells.SetSpeed(r.Context(), req.Speed); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Scenario())
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.player.Layout(s.layout))
}

func (s *Server) handleDOT(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write([]byte(s.player.DOT(dotOptions(r))))
}

func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	svg, hit, err := render.RenderSVGCached(r.Context(), s.svgCache, s.player.DOT(dotOptions(r)))
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render svg"))
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("X-Cache", cacheStatus(hit))
	_, _ = w.Write(svg)
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// dotOptions reads ?heights=true.
func dotOptions(r *http.Request) render.Options {
	heights, _ := strconv.ParseBool(r.URL.Query().Get("heights"))
	return render.Options{ShowHeights: heights}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := apperrors.ValidateRunID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	run, err := s.history.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleEvents streams a snapshot whenever the resume signal fires or the
// step count changes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported, "streaming not supported"))
		return
	}
	ctx := r.Context()

	snap, err := s.cells.Snapshot(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, snap); err != nil {
		return
	}
	flusher.Flush()

	last := snap
	for {
		waitCtx, cancel := context.WithTimeout(ctx, eventInterval)
		_, err := s.cells.WaitSignal(waitCtx, last.Signal)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("event stream", "err", err)
			return
		}

		snap, err := s.cells.Snapshot(ctx)
		if err != nil {
			return
		}
		if !changed(last, snap) {
			continue
		}
		if err := writeEvent(w, snap); err != nil {
			return
		}
		flusher.Flush()
		last = snap
	}
}

func changed(a, b state.Snapshot) bool {
	return a.Signal != b.Signal || a.StepCount != b.StepCount ||
		len(a.Log) != len(b.Log) || a.Speed != b.Speed || a.ActiveLine != b.ActiveLine
}

func writeEvent(w http.ResponseWriter, snap state.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: state\ndata: %s\n\n", data)
	return err
}
