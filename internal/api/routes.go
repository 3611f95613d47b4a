package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up the API routes of the changelog server.
func RegisterRoutes(router *mux.Router, h *Handler, authToken string) {
	router.Use(LoggingMiddleware(h.log))
	if authToken == "" {
		h.log.Warn("Auth token is empty, authentication is disabled for write routes")
	}

	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// --- Public Routes (No Auth Required) ---

	// GET /api/v1/projects
	apiV1.HandleFunc("/projects", h.ListProjects).Methods("GET")
	// GET /api/v1/projects/{id}
	apiV1.HandleFunc("/projects/{id:[0-9]+}", h.GetProject).Methods("GET")

	// --- Protected Routes (Auth Required) ---

	protect := func(fn http.HandlerFunc) http.Handler {
		return ApplyAuth(fn, authToken, h.log)
	}
	apiV1.Handle("/projects", protect(h.CreateProject)).Methods("POST")
	apiV1.Handle("/projects/{id:[0-9]+}", protect(h.DeleteProject)).Methods("DELETE")
	apiV1.Handle("/versions", protect(h.CreateVersion)).Methods("POST")
	apiV1.Handle("/versions/{id:[0-9]+}", protect(h.UpdateVersion)).Methods("PUT")
	apiV1.Handle("/versions/{id:[0-9]+}", protect(h.DeleteVersion)).Methods("DELETE")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}
