package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lychee-technology/attrschema"
	"github.com/lychee-technology/attrschema/factory"
	"github.com/lychee-technology/attrschema/internal"
)

// Server exposes attribute set validation over HTTP. Every request compiles
// its own schema from the store.
type Server struct {
	store        attrschema.AttributeSetStore
	router       chi.Router
	maxBodyBytes int64
}

// NewServer creates a new Server instance with its routes registered.
func NewServer(store attrschema.AttributeSetStore, maxBodyBytes int64) *Server {
	s := &Server{
		store:        store,
		router:       chi.NewRouter(),
		maxBodyBytes: maxBodyBytes,
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes registers all API routes
func (s *Server) RegisterRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1/attribute-sets/{setID}", func(r chi.Router) {
		r.Get("/", s.handleGetAttributeSet)
		r.Post("/validate", s.handleValidate)
		r.Post("/defaults", s.handleDefaults)
		r.Get("/json-schema", s.handleJSONSchema)
		r.Get("/modifier-attributes", s.handleModifierAttributes)
		r.Get("/modifier-attributes/{attrID}/values", s.handleModifierValues)
		r.Post("/modifier-target", s.handleModifierTarget)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request once the response is written.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.S().Infow("request completed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(newConfigViper())
	if err != nil {
		return err
	}

	logger, err := internal.NewLogger(cfg.Server.Env, cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := factory.NewAttributeSetStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create attribute set store: %w", err)
	}
	defer closeStore()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      NewServer(store, cfg.Server.MaxBodyBytes),
		IdleTimeout:  time.Minute,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("starting server", "port", cfg.Server.Port, "backend", cfg.Store.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.S().Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
