package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Entry routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/entries", handler.ListEntries).Methods("GET")
	api.HandleFunc("/entries", handler.CreateEntry).Methods("POST")
	api.HandleFunc("/entries/{id}", handler.GetEntry).Methods("GET")
	api.HandleFunc("/entries/{id}", handler.UpdateEntry).Methods("PATCH")
	api.HandleFunc("/entries/{id}", handler.DeleteEntry).Methods("DELETE")

	// Scheduler control
	api.HandleFunc("/monitor", handler.MonitorStatus).Methods("GET")
	api.HandleFunc("/monitor/start", handler.StartMonitor).Methods("POST")
	api.HandleFunc("/monitor/stop", handler.StopMonitor).Methods("POST")
	api.HandleFunc("/monitor/interval", handler.SetPollInterval).Methods("PUT")

	return r
}
