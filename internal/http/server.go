// Package http provides HTTP server implementation and request handlers.
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
	"go.opentelemetry.io/otel/metric"

	auditHTTP "github.com/allisson/keycore/internal/audit/http"
	"github.com/allisson/keycore/internal/metrics"
	rotationHTTP "github.com/allisson/keycore/internal/rotation/http"
)

// Server represents the HTTP server for the document and admin APIs.
type Server struct {
	db     *sql.DB
	logger *slog.Logger
	router *gin.Engine
	server *http.Server
}

// RouterConfig holds everything SetupRouter needs to assemble the gin engine.
// Nil middleware entries and a nil meter provider disable the matching concern.
type RouterConfig struct {
	GinMode          string
	CORSEnabled      bool
	CORSAllowOrigins string
	MeterProvider    metric.MeterProvider
	MetricsNamespace string

	DocumentRateLimit gin.HandlerFunc
	AdminRateLimit    gin.HandlerFunc

	RotationHandler *rotationHTTP.RotationHandler
	DocumentHandler *rotationHTTP.DocumentHandler
	SecurityHandler *auditHTTP.SecurityHandler
}

// NewServer creates a new HTTP server. The database connection is used by the
// readiness probe and may be nil in tests.
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
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter assembles the gin engine: middleware chain, health probes,
// document endpoints, and the admin surface.
func (s *Server) SetupRouter(cfg RouterConfig) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MeterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(cfg.MeterProvider, cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	documents := router.Group("/v1/documents")
	if cfg.DocumentRateLimit != nil {
		documents.Use(cfg.DocumentRateLimit)
	}
	if cfg.DocumentHandler != nil {
		documents.PUT("/:document_id", cfg.DocumentHandler.StoreDocumentHandler)
		documents.GET("/:document_id", cfg.DocumentHandler.LoadDocumentHandler)
	}

	admin := router.Group("/v1/admin")
	if cfg.AdminRateLimit != nil {
		admin.Use(cfg.AdminRateLimit)
	}
	if cfg.DocumentHandler != nil {
		admin.POST("/principals/:principal_id/settings", cfg.DocumentHandler.CreateSettingsHandler)
	}
	if cfg.RotationHandler != nil {
		admin.POST("/principals/:principal_id/rotate-master-key", cfg.RotationHandler.RotateMasterKeyHandler)
		admin.POST("/documents/:document_id/rotate-key", cfg.RotationHandler.RotateDocumentKeyHandler)
		admin.POST("/documents/:document_id/rewrap", cfg.RotationHandler.RewrapDocumentHandler)
		admin.GET("/rotation-needs", cfg.RotationHandler.CheckRotationNeedsHandler)
		admin.POST("/rotate-due", cfg.RotationHandler.RotateDueHandler)
	}
	if cfg.SecurityHandler != nil {
		admin.GET("/security-log", cfg.SecurityHandler.ListEntriesHandler)
		admin.GET("/alerts", cfg.SecurityHandler.ListAlertsHandler)
		admin.POST("/alerts/:alert_id/acknowledge", cfg.SecurityHandler.AcknowledgeAlertHandler)
		admin.GET("/security-metrics", cfg.SecurityHandler.GetMetricsHandler)
	}

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can do useful work, checking
// the database connection.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else if err := s.db.PingContext(c.Request.Context()); err != nil {
		components["database"] = "error"
		ready = false
	} else {
		components["database"] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.SetupRouter(RouterConfig{})
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
