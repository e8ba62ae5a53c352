// Package httpapi exposes the checker over HTTP: on-demand probes, stats
// and history reads, watch-list management and state import/export.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/webwatch/webwatch/internal/archive"
	"github.com/webwatch/webwatch/internal/checker"
	"github.com/webwatch/webwatch/internal/httpapi/middleware"
	"github.com/webwatch/webwatch/internal/monitor"
)

var apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webwatch_api_requests_total",
	Help: "API requests served, by matched route and status code.",
}, []string{"route", "code"})

type Server struct {
	log      *zap.Logger
	checker  *checker.Checker
	registry *monitor.Registry
	archive  archive.Store // nil disables the archive endpoint
}

func NewServer(log *zap.Logger, c *checker.Checker, reg *monitor.Registry, st archive.Store) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{log: log, checker: c, registry: reg, archive: st}
}

// Router assembles the full route tree. Probe and read endpoints take any
// configured key, mutating endpoints take an admin key; each tier has its
// own rate limit.
func (s *Server) Router(keys middleware.Keys, origins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	if len(origins) == 0 {
		r.Use(cors.AllowAll().Handler)
	} else {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
		}))
	}
	r.Use(instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(publicRPM, publicBurst))
		r.Use(middleware.RequireAny(keys))
		r.Post("/api/check", s.handleCheck)
		r.Post("/api/check/bulk", s.handleBulkCheck)
		r.Get("/api/targets", s.handleListTargets)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/history", s.handleHistory)
		r.Get("/api/score", s.handleScore)
		r.Get("/api/export", s.handleExport)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(adminRPM, adminBurst))
		r.Use(middleware.RequireAdmin(keys))
		r.Post("/api/targets", s.handleAddTarget)
		r.Delete("/api/targets", s.handleRemoveTarget)
		r.Post("/api/import", s.handleImport)
		r.Post("/api/clear", s.handleClear)
		r.Post("/api/archive/save", s.handleArchiveSave)
	})

	return r
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			return
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
