package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/lumenhq/sentinel/pkg/config"
	"github.com/lumenhq/sentinel/pkg/detect"
	"github.com/lumenhq/sentinel/pkg/limits"
	"github.com/lumenhq/sentinel/pkg/server/middleware"
	"github.com/lumenhq/sentinel/pkg/telemetry/metrics"
	"github.com/lumenhq/sentinel/pkg/tokens"
)

// Detector classifies an image and returns the detections found in it.
type Detector interface {
	Detect(ctx context.Context, image []byte, contentType string) ([]detect.Detection, error)
}

// TokenRegistry is the subset of the token store the HTTP layer needs.
type TokenRegistry interface {
	Issue(ctx context.Context, email string) (*tokens.Record, error)
	List(ctx context.Context) ([]*tokens.Record, error)
	Toggle(ctx context.Context, id int64) (*tokens.Record, error)
}

// Dependencies carries the collaborators the server routes to.
type Dependencies struct {
	Limiter      *limits.Limiter
	Tokens       TokenRegistry
	Detector     Detector
	Collector    *metrics.Collector
	NetdataProxy http.Handler
	Logger       *slog.Logger
}

// Server is the gateway HTTP server.
type Server struct {
	store    *config.Store
	limiter  *limits.Limiter
	tokens   TokenRegistry
	detector Detector
	sessions *Sessions
	proxy    http.Handler

	collector  *metrics.Collector
	logger     *slog.Logger
	httpServer *http.Server

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewServer creates the gateway server.
func NewServer(store *config.Store, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	admin := store.Snapshot().Admin
	return &Server{
		store:        store,
		limiter:      deps.Limiter,
		tokens:       deps.Tokens,
		detector:     deps.Detector,
		sessions:     NewSessions(admin.SessionSecret, admin.SessionTTL.Std()),
		proxy:        deps.NetdataProxy,
		collector:    deps.Collector,
		logger:       logger.With(slog.String("component", "server")),
		shutdownChan: make(chan struct{}),
	}
}

// Start runs the HTTP server and blocks until ctx is cancelled, a
// shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.store.Snapshot().Server

	s.httpServer = &http.Server{
		Addr:           cfg.ListenAddress,
		Handler:        s.Routes(),
		ReadTimeout:    cfg.ReadTimeout.Std(),
		WriteTimeout:   cfg.WriteTimeout.Std(),
		IdleTimeout:    cfg.IdleTimeout.Std(),
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("address", cfg.ListenAddress))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		return s.Shutdown(context.Background())
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.shutdownChan)

		timeout := s.store.Snapshot().Server.ShutdownTimeout.Std()
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("shutdown error", slog.Any("error", err))
				shutdownErr = fmt.Errorf("server shutdown: %w", err)
			}
		}
		s.logger.Info("server stopped")
	})
	return shutdownErr
}

// Routes builds the full handler: routes plus the middleware chain.
func (s *Server) Routes() http.Handler {
	cfg := s.store.Snapshot()
	mux := http.NewServeMux()

	rateLimited := middleware.RateLimit(s.limiter)
	adminOnly := middleware.AdminAuth(s.sessions, SessionCookieName)

	// Public API.
	mux.Handle("POST /api/detect", rateLimited(http.HandlerFunc(s.handleDetect)))
	mux.Handle("POST /api/isnude", rateLimited(http.HandlerFunc(s.handleIsNude)))
	mux.HandleFunc("GET /api/list_labels", s.handleListLabels)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Browser pages.
	mux.Handle("GET /{$}", servePage(homePage))
	mux.Handle("GET /detect_form", servePage(detectFormPage))
	mux.Handle("GET /isnude_form", servePage(isnudeFormPage))

	// Admin session flow.
	mux.HandleFunc("GET /auth/login_form", s.handleLoginForm)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	// Guarded token registry.
	mux.Handle("GET /admin/tokens", adminOnly(http.HandlerFunc(s.handleListTokens)))
	mux.Handle("POST /admin/tokens", adminOnly(http.HandlerFunc(s.handleCreateToken)))
	mux.Handle("POST /admin/tokens/{id}/toggle", adminOnly(http.HandlerFunc(s.handleToggleToken)))

	// Guarded monitoring UI proxy.
	if s.proxy != nil {
		prefix := cfg.Netdata.MountPrefix
		mux.Handle(prefix, adminOnly(s.proxy))
		mux.Handle(prefix+"/", adminOnly(s.proxy))
	}

	// Metrics endpoint.
	if s.collector != nil && cfg.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+cfg.Telemetry.Metrics.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	if s.collector != nil {
		handler = middleware.Metrics(s.collector.Requests())(handler)
	}
	handler = middleware.Logging(s.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(s.logger)(handler)
	return handler
}

func adminUser(r *http.Request) string {
	return middleware.GetAdminUser(r.Context())
}
