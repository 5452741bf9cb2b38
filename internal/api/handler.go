package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/scenenodes/internal/config"
	"github.com/gyaneshwarpardhi/scenenodes/internal/engine"
	"github.com/gyaneshwarpardhi/scenenodes/internal/graph"
	"github.com/gyaneshwarpardhi/scenenodes/internal/metrics"
	"github.com/gyaneshwarpardhi/scenenodes/internal/source"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, loader *config.Loader) http.Handler {
	h := &Handler{eng: eng, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/graph/rebuild", h.rebuild)
	h.mux.HandleFunc("GET /v1/graph", h.getGraph)
	h.mux.HandleFunc("PUT /v1/objects/{id}/parent", h.setParent)
	h.mux.HandleFunc("DELETE /v1/objects/{id}/parent", h.clearParent)
	h.mux.HandleFunc("POST /v1/nodes/{kind}/{id}/duplicate", h.duplicate)
	h.mux.HandleFunc("DELETE /v1/nodes/{kind}/{id}", h.remove)
	h.mux.HandleFunc("POST /v1/scenes/{id}/reindex", h.reindex)
	h.mux.HandleFunc("GET /v1/config", h.getConfig)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/graph/rebuild — the "rebuild graph" trigger.
func (h *Handler) rebuild(w http.ResponseWriter, r *http.Request) {
	res, err := h.eng.Rebuild(r.Context())
	h.respond(w, res, err)
}

// GET /v1/graph — current nodes and links.
func (h *Handler) getGraph(w http.ResponseWriter, r *http.Request) {
	snap, err := h.eng.Graph(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type parentRequest struct {
	Parent source.ID `json:"parent"`
}

// PUT /v1/objects/{id}/parent — relink an object; an empty parent means its scene.
func (h *Handler) setParent(w http.ResponseWriter, r *http.Request) {
	var req parentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	res, err := h.eng.Relink(r.Context(), source.ID(r.PathValue("id")), req.Parent)
	h.respond(w, res, err)
}

// DELETE /v1/objects/{id}/parent — drop an object's parent link.
func (h *Handler) clearParent(w http.ResponseWriter, r *http.Request) {
	res, err := h.eng.Unlink(r.Context(), source.ID(r.PathValue("id")))
	h.respond(w, res, err)
}

// POST /v1/nodes/{kind}/{id}/duplicate
func (h *Handler) duplicate(w http.ResponseWriter, r *http.Request) {
	kind, err := graph.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.eng.Duplicate(r.Context(), kind, source.ID(r.PathValue("id")))
	if err == nil {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	h.respond(w, res, err)
}

// DELETE /v1/nodes/{kind}/{id}
func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	kind, err := graph.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.eng.Remove(r.Context(), kind, source.ID(r.PathValue("id")))
	h.respond(w, res, err)
}

// POST /v1/scenes/{id}/reindex
func (h *Handler) reindex(w http.ResponseWriter, r *http.Request) {
	res, err := h.eng.Reindex(r.Context(), source.ID(r.PathValue("id")))
	h.respond(w, res, err)
}

// GET /v1/config — the active configuration.
func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.loader.Config())
}

// POST /v1/config/reload — re-read the config file. Change listeners
// registered on the loader apply it and rebuild.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if errors.Is(err, config.ErrInvalid) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the command queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

func (h *Handler) respond(w http.ResponseWriter, res *engine.Result, err error) {
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Result: res})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// statusFor maps engine and graph errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, graph.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrRebuildInProgress):
		return http.StatusConflict
	case errors.Is(err, graph.ErrStaleIdentity):
		return http.StatusGone
	case errors.Is(err, graph.ErrCycleRisk),
		errors.Is(err, graph.ErrInvalidLink),
		errors.Is(err, graph.ErrNotDuplicable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
