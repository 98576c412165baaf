package app

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	auditHTTP "github.com/allisson/keycore/internal/audit/http"
	"github.com/allisson/keycore/internal/http"
	"github.com/allisson/keycore/internal/ratelimit"
	rotationHTTP "github.com/allisson/keycore/internal/rotation/http"
)

// httpContainer holds the HTTP servers and their handlers.
type httpContainer struct {
	rateLimitStore ratelimit.Store
	httpServer     *http.Server
	metricsServer  *http.MetricsServer

	rateLimitStoreInit sync.Once
	httpServerInit     sync.Once
	metricsServerInit  sync.Once
}

// RateLimitStore returns the fixed-window rate limit store instance.
func (c *Container) RateLimitStore() (ratelimit.Store, error) {
	var err error
	c.rateLimitStoreInit.Do(func() {
		c.rateLimitStore, err = c.initRateLimitStore()
		if err != nil {
			c.initErrors["rateLimitStore"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rateLimitStore"]; exists {
		return nil, storedErr
	}
	return c.rateLimitStore, nil
}

// HTTPServer returns the HTTP server instance with the full router assembled.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics
// are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		metricsProvider, initErr := c.MetricsProvider()
		if initErr != nil {
			c.initErrors["metricsServer"] = initErr
			err = initErr
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			metricsProvider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// initRateLimitStore creates the fixed-window store. The Redis store is used
// whenever the counter store provider is Redis so limits hold across processes.
func (c *Container) initRateLimitStore() (ratelimit.Store, error) {
	if c.config.CounterStoreProvider == "redis" {
		client, err := c.RedisClient()
		if err != nil {
			return nil, fmt.Errorf("failed to get redis client for rate limit store: %w", err)
		}
		return ratelimit.NewRedisStore(client), nil
	}
	return ratelimit.NewMemoryStore(), nil
}

// documentRateLimitMiddleware builds the fixed-window middleware for the
// document endpoints, or nil when disabled.
func (c *Container) documentRateLimitMiddleware() (gin.HandlerFunc, error) {
	if !c.config.RateLimitEnabled {
		return nil, nil
	}

	store, err := c.RateLimitStore()
	if err != nil {
		return nil, err
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for rate limit middleware: %w", err)
	}

	rateLimitConfig := ratelimit.Config{
		Limit:  c.config.RateLimitRequests,
		Window: c.config.RateLimitWindow,
	}

	return ratelimit.Middleware(store, rateLimitConfig, auditUC, c.Logger()), nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	rotationUC, err := c.RotationUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation use case for http server: %w", err)
	}

	provisioningUC, err := c.ProvisioningUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get provisioning use case for http server: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit use case for http server: %w", err)
	}

	documentRateLimit, err := c.documentRateLimitMiddleware()
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limit middleware for http server: %w", err)
	}

	var adminRateLimit gin.HandlerFunc
	if c.config.AdminRateLimitEnabled {
		adminRateLimit = ratelimit.AdminMiddleware(
			c.config.AdminRateLimitRequestsPerSec,
			c.config.AdminRateLimitBurst,
			logger,
		)
	}

	routerConfig := http.RouterConfig{
		GinMode:           c.config.GetGinMode(),
		CORSEnabled:       c.config.CORSEnabled,
		CORSAllowOrigins:  c.config.CORSAllowOrigins,
		MetricsNamespace:  c.config.MetricsNamespace,
		DocumentRateLimit: documentRateLimit,
		AdminRateLimit:    adminRateLimit,
		RotationHandler:   rotationHTTP.NewRotationHandler(rotationUC, logger),
		DocumentHandler:   rotationHTTP.NewDocumentHandler(provisioningUC, auditUC, logger),
		SecurityHandler:   auditHTTP.NewSecurityHandler(auditUC, logger),
	}

	if c.config.MetricsEnabled {
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		if metricsProvider != nil {
			routerConfig.MeterProvider = metricsProvider.MeterProvider()
		}
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(routerConfig)

	return server, nil
}
