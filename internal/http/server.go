// Package http exposes the JSON API: session handling, suppliers, entries,
// users, aggregation and workbook export.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"fornitori/internal/auth"
	applog "fornitori/internal/log"
	"fornitori/internal/middleware/ratelimit"
	"fornitori/internal/middleware/security"
	"fornitori/internal/middleware/trace"
	"fornitori/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Auth      *auth.Manager
	Suppliers *services.SupplierService
	Entries   *services.EntryService
	Users     *services.UserService
	Reports   *services.ReportService
	Store     Pinger
}

type Server struct {
	http.Server
	deps   Deps
	router *mux.Router
	logger *applog.Logger

	tracer       *trace.Middleware
	detector     *security.Detector
	writeLimiter *ratelimit.Limiter
	loginLimiter *ratelimit.Limiter
	started      time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps, logger *applog.Logger) *Server {
	logger = logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		deps:         deps,
		router:       mux.NewRouter(),
		logger:       logger,
		detector:     security.NewDetector(logger),
		writeLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: 60, Window: time.Minute}),
		loginLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerWindow: 10, Window: time.Minute}),
		started:      time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.routes()

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(applog.ComponentMiddleware(applog.ComponentHTTP))
	api.Use(s.writeLimiter.Middleware(s.detector.ExtractClientIP, isWrite, s.onRateLimit))

	login := api.NewRoute().Subrouter()
	login.Use(s.loginLimiter.Middleware(s.detector.ExtractClientIP, nil, s.onRateLimit))
	login.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireSession)

	authed.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authed.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	authed.HandleFunc("/session/year", s.handleSetYear).Methods(http.MethodPut)

	authed.HandleFunc("/suppliers", s.handleListSuppliers).Methods(http.MethodGet)
	authed.HandleFunc("/suppliers", s.handleCreateSupplier).Methods(http.MethodPost)
	authed.HandleFunc("/suppliers/{id}", s.handleUpdateSupplier).Methods(http.MethodPut)
	authed.HandleFunc("/suppliers/{id}", s.handleDeleteSupplier).Methods(http.MethodDelete)

	authed.HandleFunc("/entries", s.handleListEntries).Methods(http.MethodGet)
	authed.HandleFunc("/entries", s.handleCreateEntry).Methods(http.MethodPost)
	authed.HandleFunc("/entries/{id}", s.handleUpdateEntry).Methods(http.MethodPut)
	authed.HandleFunc("/entries/{id}", s.handleDeleteEntry).Methods(http.MethodDelete)

	authed.HandleFunc("/users/me/password", s.handleChangePassword).Methods(http.MethodPut)

	admin := authed.NewRoute().Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)

	authed.HandleFunc("/aggregate", s.handleAggregate).Methods(http.MethodGet)
	authed.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
}

// TrustProxies makes the server honour forwarding headers from the given
// networks when deriving the client address.
func (s *Server) TrustProxies(cidrs ...string) error {
	for _, c := range cidrs {
		if err := s.detector.AddTrustedProxy(c); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown stops the background goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.writeLimiter.Stop()
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r), applog.FieldPath, r.URL.Path)
	writeMessage(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
