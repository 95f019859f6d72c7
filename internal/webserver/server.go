// Package webserver wires the HTTP API: admin console endpoints, job
// search, resume analysis and public site metadata.
package webserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optcareerconnect/occ/internal/admin"
	"github.com/optcareerconnect/occ/internal/config"
	"github.com/optcareerconnect/occ/internal/jobs"
	"github.com/optcareerconnect/occ/internal/resume"
)

// Config holds the HTTP listener settings.
type Config struct {
	Host string
	Port string
}

// Server owns the router and the feature dependencies behind it.
type Server struct {
	cfg       Config
	settings  *config.Service
	auth      *admin.Auth
	searcher  *jobs.Searcher
	analyzer  *resume.Analyzer
	shortlist *jobs.Shortlist // nil = shortlist endpoints unavailable
	router    *gin.Engine
}

// New assembles the server. shortlist may be nil.
func New(cfg Config, settings *config.Service, auth *admin.Auth, searcher *jobs.Searcher, analyzer *resume.Analyzer, shortlist *jobs.Shortlist) *Server {
	s := &Server{
		cfg:       cfg,
		settings:  settings,
		auth:      auth,
		searcher:  searcher,
		analyzer:  analyzer,
		shortlist: shortlist,
	}
	s.buildRouter()
	return s
}

func (s *Server) buildRouter() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())
	s.registerRoutes(router)
	s.router = router
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	addr := s.cfg.Host + ":" + s.cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	slog.Info("http server listening", slog.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		slog.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request with latency and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}
