package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cyp0633/calseries/server/auth"
	"github.com/cyp0633/calseries/server/series"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerTruncated   = "X-Generation-Truncated"
	headerLocation    = "Location"

	// MIME types
	mimeTypeCalendar = "text/calendar; charset=utf-8"
	mimeTypeJSON     = "application/json; charset=utf-8"

	healthPath = "/healthz"
)

// Server exposes the series service as a JSON API
type Server struct {
	service  *series.Service
	basePath string
	location *time.Location
	realm    string
	authn    auth.Authenticator
	logger   *slog.Logger
	handler  http.Handler
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBasePath mounts every route under prefix, e.g. "/api"
func WithBasePath(prefix string) Option {
	return func(s *Server) {
		s.basePath = normalizeBasePath(prefix)
	}
}

// WithLocation sets the zone used for floating iCalendar times and for
// JSON requests that name no time zone
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithAuthenticator requires Basic authentication on every route except the health check
func WithAuthenticator(a auth.Authenticator, realm string) Option {
	return func(s *Server) {
		s.authn = a
		s.realm = realm
	}
}

// New creates a server over svc
func New(svc *series.Service, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("series service is required")
	}

	s := &Server{
		service:  svc,
		location: time.UTC,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	if s.authn != nil {
		h = auth.Middleware(s.authn, s.realm, s.basePath+healthPath)(h)
	}
	s.handler = s.logRequests(h)
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	handle := func(pattern string, fn http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+s.basePath+path, fn)
	}

	handle("GET /healthz", s.handleHealth)
	handle("POST /preview", s.handlePreview)

	handle("POST /series", s.handleCreateSeries)
	handle("GET /series/{id}", s.handleGetSeries)
	handle("DELETE /series/{id}", s.handleDeleteSeries)
	handle("GET /series/{id}/occurrences", s.handleListOccurrences)
	handle("GET /series/{id}/calendar.ics", s.handleSeriesCalendar)
	handle("POST /series/{id}/rematerialize", s.handleRematerialize)

	handle("POST /events", s.handleCreateEvent)
	handle("GET /events", s.handleListEvents)
	handle("GET /events/{id}", s.handleGetEvent)
	handle("DELETE /events/{id}", s.handleDeleteEvent)
	handle("POST /events/{id}/reports", s.handleReportEvent)
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr)
	})
}

func normalizeBasePath(prefix string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
