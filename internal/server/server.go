// Package server is the HTTP classify service: it accepts a batch of
// unclassified shapes and answers with one category per shape.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

const defaultTimeout = 90 * time.Second

type Config struct {
	ServiceToken   string // bearer token; empty disables auth
	RateLimitRPS   float64
	RateLimitBurst int
	MaxShapes      int
	MaxTextLength  int
	Timeout        time.Duration
}

type Server struct {
	backend   llm.Backend
	cfg       Config
	logger    *slog.Logger
	limiter   *rate.Limiter
	startTime time.Time
}

func New(backend llm.Backend, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxShapes <= 0 {
		cfg.MaxShapes = 500
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = 10000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	s := &Server{
		backend:   backend,
		cfg:       cfg,
		logger:    logger,
		startTime: time.Now(),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return s
}

// Routes returns the chi router with middleware and routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.ServiceToken))
		r.Use(RateLimitMiddleware(s.limiter))
		r.Use(middleware.Timeout(s.cfg.Timeout))
		r.Post("/v1/classify", s.handleClassify)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.logger.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
