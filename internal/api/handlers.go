package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cegateway/ticker-monitor/internal/models"
	"github.com/cegateway/ticker-monitor/internal/monitor"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	registry  *monitor.Registry
	scheduler *monitor.Scheduler
}

// NewHandler creates a new Handler
func NewHandler(registry *monitor.Registry, scheduler *monitor.Scheduler) *Handler {
	return &Handler{
		registry:  registry,
		scheduler: scheduler,
	}
}

// ListEntries handles GET /entries with optional id and name filters
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	var filter monitor.ListFilter
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		filter.ID = &id
	}
	filter.Name = r.URL.Query().Get("name")

	respondJSON(w, http.StatusOK, h.registry.List(filter))
}

// GetEntry handles GET /entries/{id}
func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// CreateEntry handles POST /entries
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var spec models.EntrySpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.registry.Create(r.Context(), spec)
	if err != nil {
		respondError(w, err)
		return
	}

	snapshot, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// UpdateEntry handles PATCH /entries/{id}
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var patch monitor.EntryPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.registry.Update(r.Context(), id, patch); err != nil {
		respondError(w, err)
		return
	}

	snapshot, err := h.registry.Get(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// DeleteEntry handles DELETE /entries/{id}
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MonitorStatus handles GET /monitor
func (h *Handler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"running":          h.scheduler.Running(),
		"interval_seconds": int(h.scheduler.PollInterval().Seconds()),
		"entries":          len(h.registry.List(monitor.ListFilter{})),
	})
}

// StartMonitor handles POST /monitor/start
func (h *Handler) StartMonitor(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Start()
	respondJSON(w, http.StatusOK, map[string]bool{"running": true})
}

// StopMonitor handles POST /monitor/stop
func (h *Handler) StopMonitor(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	respondJSON(w, http.StatusOK, map[string]bool{"running": false})
}

// SetPollInterval handles PUT /monitor/interval
func (h *Handler) SetPollInterval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Seconds <= 0 {
		http.Error(w, "seconds must be positive", http.StatusBadRequest)
		return
	}

	h.scheduler.SetPollInterval(req.Seconds)
	respondJSON(w, http.StatusOK, map[string]int{"interval_seconds": req.Seconds})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// respondError maps monitor errors to status codes. Validation messages
// reach the client verbatim.
func respondError(w http.ResponseWriter, err error) {
	var validationErr *monitor.ValidationError
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Message, http.StatusBadRequest)
	case errors.Is(err, monitor.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
