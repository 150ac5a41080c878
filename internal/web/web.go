// Package web serves the calendar's HTTP JSON API.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eventcal/internal/calendar"
	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/metric"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// projectionCacheTTL bounds how long a month view is served from memory.
// Writes through this server drop the cache immediately; the TTL covers
// subscription imports, which write to the store directly.
const projectionCacheTTL = 30 * time.Second

// maxCachedProjections bounds the number of distinct month/search/category
// views held at once.
const maxCachedProjections = 64

// Server provides the HTTP API.
type Server struct {
	cfg       *config.Config
	svc       *calendar.Service
	metrics   *metric.Metrics
	gatherer  prometheus.Gatherer
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
	mux       *http.ServeMux

	projMu    sync.RWMutex
	projCache map[projectionKey]*projectionCache
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics in m and serves g on /metrics.
func WithMetrics(m *metric.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithClock overrides the clock used for the default month and DTSTAMP.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer constructs a Server. Without WithMetrics, /metrics serves the
// default Prometheus registry.
func NewServer(cfg *config.Config, svc *calendar.Service, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		svc:       svc,
		gatherer:  prometheus.DefaultGatherer,
		loc:       resolveLocationOrLocal(cfg),
		weekStart: parseWeekStart(cfg.WeekStart),
		now:       time.Now,
		mux:       http.NewServeMux(),
		projCache: make(map[projectionKey]*projectionCache),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler, with basic auth when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/move", s.handleMoveEvent)

	s.mux.HandleFunc("POST /api/conflicts/check", s.handleCheckConflicts)
	s.mux.HandleFunc("GET /api/conflicts", s.handleAllConflicts)
	s.mux.HandleFunc("GET /api/suggestions", s.handleSuggestions)

	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func parseWeekStart(v string) time.Weekday {
	if v == "monday" {
		return time.Monday
	}
	return time.Sunday
}

func resolveLocationOrLocal(cfg *config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		return time.Local
	}
	return loc
}

// forceParam reports whether ?force= asks to save despite conflicts.
func forceParam(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("force"))
	return err == nil && v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
