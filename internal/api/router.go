package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/dxbintel/propsignal/internal/api/handlers"
	"github.com/dxbintel/propsignal/pkg/logger"
)

// NewRouter wires all HTTP routes. Every /api route is org-scoped via the
// X-Org-ID header.
func NewRouter(signalHandler *handlers.SignalHandler, pipelineHandler *handlers.PipelineHandler, notificationHandler *handlers.NotificationHandler, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/signals", signalHandler.List).Methods("GET")
	api.HandleFunc("/signals/{id}/acknowledge", signalHandler.Acknowledge).Methods("POST")
	api.HandleFunc("/signals/{id}/dismiss", signalHandler.Dismiss).Methods("POST")

	api.HandleFunc("/targets", signalHandler.ListTargets).Methods("GET")

	api.HandleFunc("/notifications", notificationHandler.List).Methods("GET")

	api.HandleFunc("/pipeline/run", pipelineHandler.Trigger).Methods("POST")
	api.HandleFunc("/pipeline/jobs", pipelineHandler.JobStats).Methods("GET")

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "propsignal-api",
	})
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from handler panics.
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
