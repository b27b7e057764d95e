package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/store"
)

// HealthChecker reports store connectivity.
type HealthChecker interface {
	Health(ctx context.Context) store.HealthStatus
}

// StatsReader counts graph entities.
type StatsReader interface {
	Graph(ctx context.Context) (store.GraphStatistics, error)
}

// Option configures a Server.
type Option func(*Server)

// WithCache caches successful query responses.
func WithCache(c *Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithHealth reports store health on /v1/health. Without it the store is
// assumed reachable.
func WithHealth(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// WithStats serves /v1/stats.
func WithStats(r StatsReader) Option {
	return func(s *Server) { s.stats = r }
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the access and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersion sets the version reported by /v1/health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithReadTimeout bounds reading a whole request in ListenAndServe.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// Server routes HTTP requests to an Analyzer.
type Server struct {
	analyzer *analysis.Analyzer
	cache    *Cache
	health   HealthChecker
	stats    StatsReader
	metrics  http.Handler
	logger   *slog.Logger
	version  string
	engine   *gin.Engine

	readTimeout time.Duration
}

// NewServer builds the router.
func NewServer(analyzer *analysis.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer: analyzer,
		logger:   slog.Default(),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	RegisterRoutes(engine.Group("/v1"), s)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics))
	}
	s.engine = engine
	return s
}

// RegisterRoutes adds the query routes to rg.
func RegisterRoutes(rg *gin.RouterGroup, s *Server) {
	rg.GET("/health", s.HandleHealth)
	rg.GET("/stats", s.HandleStats)

	rg.GET("/functions", s.HandleFunctions)
	fn := rg.Group("/functions/:name")
	{
		fn.GET("/paths", s.HandlePaths)
		fn.GET("/upward", s.HandleUpward)
		fn.GET("/sequences", s.HandleSequences)
		fn.GET("/callers", s.HandleCallers)
		fn.GET("/recursion", s.HandleRecursion)
		fn.GET("/context", s.HandleContext)
		fn.GET("/callgraph", s.HandleCallGraph)
	}

	rg.GET("/binaries/:name", s.HandleBinary)
	rg.GET("/xrefs/:address", s.HandleXrefs)
	rg.GET("/strings", s.HandleStrings)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

const requestIDHeader = "X-Request-ID"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()

		s.logger.Debug("request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
