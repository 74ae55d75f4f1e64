// Package server exposes screening jobs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/types"
)

// JobService is the part of jobs.Manager the handlers use.
type JobService interface {
	Submit(ctx context.Context, tickers []string, benchmarkForwardPE float64) (*types.JobState, error)
	Status(ctx context.Context, id string) (*types.JobState, error)
	Result(ctx context.Context, id string) (*types.JobResult, error)
}

// UniverseSource lists index constituents.
type UniverseSource interface {
	SP500(ctx context.Context) ([]string, error)
}

type Server struct {
	jobs     JobService
	reports  interfaces.ReportBuilder
	universe UniverseSource
	format   string

	engine *gin.Engine
	http   *http.Server
}

type Option func(*Server)

// WithDefaultFormat sets the report format used when download has no
// format query parameter.
func WithDefaultFormat(format string) Option {
	return func(s *Server) {
		s.format = format
	}
}

func New(addr string, jobs JobService, reports interfaces.ReportBuilder, universe UniverseSource, opts ...Option) *Server {
	s := &Server{
		jobs:     jobs,
		reports:  reports,
		universe: universe,
		format:   "pdf",
		engine:   gin.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestIDMiddleware())
	s.engine.Use(LoggingMiddleware())

	s.engine.GET("/health", s.health)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/analyze", s.analyze)
		v1.GET("/status/:id", s.status)
		v1.GET("/results/:id", s.results)
		v1.GET("/download/:id", s.download)
		v1.GET("/universe/sp500", s.sp500)
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info(context.Background(), "HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
