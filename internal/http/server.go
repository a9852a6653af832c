// Package http provides the HTTP server, router and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/piimask/internal/config"
	"github.com/allisson/piimask/internal/metrics"
	taskHTTP "github.com/allisson/piimask/internal/task/http"
)

// bodyOverhead leaves room for base64 expansion and multipart framing above the
// document size limit.
const bodyOverhead = 1 << 20

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. db backs the readiness check and may be nil.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes. metricsProvider may be nil.
//
// Routes:
//
//	GET    /health
//	GET    /ready
//	POST   /v1/tasks
//	GET    /v1/tasks/:id
//	GET    /v1/tasks/:id/artifact
//	GET    /v1/tasks/:id/metadata
//	POST   /v1/tasks/:id/restore   (rate limited)
//	DELETE /v1/tasks/:id
//	POST   /v1/restore             (rate limited)
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	taskHandler *taskHTTP.TaskHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxDocumentSizeBytes

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))
	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	restoreMiddleware := []gin.HandlerFunc{}
	if cfg.RateLimitEnabled {
		restoreMiddleware = append(restoreMiddleware,
			RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	v1 := router.Group("/v1")
	v1.Use(BodyLimitMiddleware(2*cfg.MaxDocumentSizeBytes + bodyOverhead))
	{
		tasks := v1.Group("/tasks")
		tasks.POST("", taskHandler.MaskHandler)
		tasks.GET("/:id", taskHandler.GetHandler)
		tasks.GET("/:id/artifact", taskHandler.GetArtifactHandler)
		tasks.GET("/:id/metadata", taskHandler.GetMetadataHandler)
		tasks.POST("/:id/restore", append(restoreMiddleware, taskHandler.RestoreTaskHandler)...)
		tasks.DELETE("/:id", taskHandler.DeleteHandler)

		v1.POST("/restore", append(restoreMiddleware, taskHandler.RestoreHandler)...)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	database := "ok"
	if s.db == nil || s.db.PingContext(ctx) != nil {
		database = "error"
	}

	if database != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": database},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": database},
	})
}
