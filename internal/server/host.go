// Package server exposes the host over HTTP and serves remote applications
// during development.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"fedhost/internal/compose"
	"fedhost/internal/engine"
	"fedhost/internal/loader"
	"fedhost/internal/ui"
)

// DefaultRegionTimeout bounds how long fragment and event requests wait for
// a region to settle.
const DefaultRegionTimeout = 15 * time.Second

type HostOption func(*Host)

func WithRegionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.regionTimeout = d
		}
	}
}

// Host serves composed pages, region fragments and activation events.
type Host struct {
	engine        *engine.Engine
	logger        *zap.Logger
	regionTimeout time.Duration
	router        *mux.Router
}

func NewHost(e *engine.Engine, opts ...HostOption) *Host {
	h := &Host{
		engine:        e,
		logger:        e.Logger().Named("server"),
		regionTimeout: DefaultRegionTimeout,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(h)
		}
	}

	r := mux.NewRouter()
	r.Use(observe(h.logger, e.Metrics()))
	r.HandleFunc("/", h.handlePage).Methods(http.MethodGet)
	r.HandleFunc("/regions/{id}", h.handleRegion).Methods(http.MethodGet)
	r.HandleFunc("/regions/{id}/events/{event}", h.handleEvent).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", e.Metrics().Handler()).Methods(http.MethodGet)
	h.router = r
	return h
}

func (h *Host) Handler() http.Handler { return h.router }

func (h *Host) handlePage(w http.ResponseWriter, r *http.Request) {
	root, err := h.engine.NewRoot(&engine.Recorder{})
	if err != nil {
		h.logger.Error("build root", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	v := root.Mount(r.Context())
	defer v.Unmount()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := compose.WriteDocument(r.Context(), w, h.engine.Config().Name, v); err != nil && r.Context().Err() == nil {
		h.logger.Warn("page stream aborted", zap.String("view", v.ID()), zap.Error(err))
	}
}

// settled mounts only region id and waits for it to settle.
func (h *Host) settled(ctx context.Context, id string, rec *engine.Recorder) (*compose.View, compose.RegionSnapshot, error) {
	root, err := h.engine.NewRoot(rec, id)
	if err != nil {
		return nil, compose.RegionSnapshot{}, err
	}
	v := root.Mount(ctx)
	if err := v.Wait(ctx); err != nil {
		v.Unmount()
		return nil, compose.RegionSnapshot{}, err
	}
	snap, _ := v.Region(id)
	return v, snap, nil
}

func (h *Host) regionError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, engine.ErrUnknownRegion):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown region", "region": id})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "region did not settle in time", "region": id})
	default:
		h.logger.Error("region request failed", zap.String("region", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "region": id})
	}
}

func (h *Host) handleRegion(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithTimeout(r.Context(), h.regionTimeout)
	defer cancel()

	v, snap, err := h.settled(ctx, id, &engine.Recorder{})
	if err != nil {
		h.regionError(w, id, err)
		return
	}
	defer v.Unmount()

	status := http.StatusOK
	if snap.Status == compose.StatusFailed {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Fedhost-Region-Status", snap.Status.String())
	w.WriteHeader(status)
	if err := ui.RenderHTML(w, snap.Node); err != nil {
		h.logger.Warn("write fragment", zap.String("region", id), zap.Error(err))
	}
}

// EventResponse is returned by POST /regions/{id}/events/{event}.
type EventResponse struct {
	Region   string   `json:"region"`
	Event    string   `json:"event"`
	Fired    bool     `json:"fired"`
	Messages []string `json:"messages"`
	Error    string   `json:"error,omitempty"`
}

func (h *Host) handleEvent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, event := vars["id"], vars["event"]
	ctx, cancel := context.WithTimeout(r.Context(), h.regionTimeout)
	defer cancel()

	rec := &engine.Recorder{}
	v, snap, err := h.settled(ctx, id, rec)
	if err != nil {
		h.regionError(w, id, err)
		return
	}
	defer v.Unmount()

	resp := EventResponse{Region: id, Event: event, Messages: []string{}}
	fired, err := v.Activate(id, event)
	if err != nil {
		if errors.Is(err, compose.ErrRegionNotResolved) {
			resp.Error = compose.PresentError(snap.Err, h.engine.VerboseErrors()).Message
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		h.regionError(w, id, err)
		return
	}
	resp.Fired = fired
	if msgs := rec.Messages(); len(msgs) > 0 {
		resp.Messages = msgs
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health is returned by GET /healthz.
type Health struct {
	Status  string       `json:"status"`
	Name    string       `json:"name"`
	Remotes []string     `json:"remotes"`
	Shared  []string     `json:"shared"`
	Loads   loader.Stats `json:"loads"`
}

func (h *Host) handleHealth(w http.ResponseWriter, r *http.Request) {
	ld := h.engine.Loader()
	remotes := ld.Remotes()
	names := make([]string, len(remotes))
	for i, rm := range remotes {
		names[i] = rm.Name
	}
	writeJSON(w, http.StatusOK, Health{
		Status:  "ok",
		Name:    h.engine.Config().Name,
		Remotes: names,
		Shared:  h.engine.Registry().Names(),
		Loads:   ld.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
