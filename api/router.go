// Package api serves the finalized provenance graph over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/c360studio/provgraph/export"
	"github.com/c360studio/provgraph/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires the provenance handlers.
type Router struct {
	svc      *service.Service
	exporter *export.Exporter
	archive  SnapshotArchive
	gatherer prometheus.Gatherer
	origins  []string
	logger   *slog.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithGatherer serves gatherer on /metrics.
func WithGatherer(g prometheus.Gatherer) RouterOption {
	return func(rt *Router) {
		rt.gatherer = g
	}
}

// WithAllowedOrigins enables CORS for origins.
func WithAllowedOrigins(origins ...string) RouterOption {
	return func(rt *Router) {
		rt.origins = origins
	}
}

// WithExporter replaces the default minimal-profile exporter.
func WithExporter(e *export.Exporter) RouterOption {
	return func(rt *Router) {
		rt.exporter = e
	}
}

// WithArchive serves stored snapshots under /snapshots.
func WithArchive(a SnapshotArchive) RouterOption {
	return func(rt *Router) {
		rt.archive = a
	}
}

// NewRouter creates a new router instance.
func NewRouter(svc *service.Service, logger *slog.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	rt := &Router{
		svc:      svc,
		exporter: export.NewExporter(export.ProfileMinimal),
		gatherer: prometheus.DefaultGatherer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))

	if len(rt.origins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: rt.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	h := &handler{svc: rt.svc, exporter: rt.exporter, archive: rt.archive, logger: rt.logger}

	router.Get("/health", h.health)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))

	router.Route("/provenance", func(r chi.Router) {
		r.Get("/", h.getSnapshot)
		r.Get("/commits/{iri}", h.getCommit)
		r.Get("/versions/{iri}", h.getVersion)
		r.Get("/current", h.getCurrent)
		r.Put("/current", h.putCurrent)
		r.Post("/refresh", h.refresh)
		r.Get("/export", h.exportSnapshot)
	})

	if rt.archive != nil {
		router.Route("/snapshots", func(r chi.Router) {
			r.Get("/", h.listArchive)
			r.Get("/{graph}", h.getArchived)
			r.Delete("/{graph}", h.deleteArchived)
		})
	}

	return router
}

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimiddleware.GetReqID(r.Context()))
		})
	}
}
