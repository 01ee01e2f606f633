// Package httpapi implements the Control API (C5): a single router
// carrying the request/response surface of §6 plus the live subscription
// channel, backed by the Store, the Metrics Bus, the Hardware Probe, and the
// Retrieval Service. Handlers are thin: validate parameters, translate into
// Store mutations or reads, return JSON.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux builds the Control API router over deps.
func NewMux(deps *Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(metricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := &handlers{deps: deps, startMu: newStartMutex()}

	r.Get("/api/health", h.health)
	r.Get("/api/models", h.listModels)
	r.Get("/api/model/metadata", h.modelMetadata)

	r.Get("/api/downloads", h.listDownloads)
	r.Get("/api/downloads/enqueue", h.enqueueDownload)
	r.Get("/api/downloads/cancel", h.cancelDownload)
	r.Get("/api/downloads/remove", h.removeDownload)

	r.Get("/api/inference", h.listInference)
	r.Get("/api/inference/start", h.startInference)
	r.Get("/api/inference/stop", h.stopInference)
	r.Get("/api/inference/reset", h.resetInference)
	r.Get("/api/inference/restart", h.restartInference)
	r.Get("/api/inference/status", h.listInference)

	r.Get("/api/hardware", h.hardware)
	r.Get("/api/hardwareinfo", h.hardware)
	r.Get("/api/shutdown", h.shutdown)
	r.Post("/api/utils/log", h.writeLog)

	if deps.Retrieval != nil {
		r.Post("/api/retrieval/ingest", h.retrievalIngest)
		r.Get("/api/retrieval/query", h.retrievalQuery)
	}

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	mountStatic(r, "/app", deps.AppDir, "dist")
	mountStatic(r, "/admin", deps.AppDir, "distadmin")

	r.Get("/*", h.subscribe)

	return r
}
