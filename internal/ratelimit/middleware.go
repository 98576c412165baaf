package ratelimit

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/keycore/internal/audit/domain"
	apperrors "github.com/allisson/keycore/internal/errors"
	"github.com/allisson/keycore/internal/httputil"
)

// EventLogger records the rate_limit security event on denial. Satisfied by
// the audit use case.
type EventLogger interface {
	Log(ctx context.Context, entry *auditDomain.SecurityLogEntry)
}

// Middleware enforces a fixed-window rate limit keyed by client IP.
//
// Returns 429 Too Many Requests with a Retry-After header when the limit is
// exceeded, and records a rate_limit security event for the denial. Store
// failures fail open: an unreachable Redis must not take the API down.
func Middleware(store Store, config Config, audit EventLogger, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		decision, err := store.Check(c.Request.Context(), "rl:ip:"+ip, config)
		if err != nil {
			logger.Error("rate limit check failed", slog.String("ip", ip), slog.Any("error", err))
			c.Next()
			return
		}

		if decision.Allowed {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			c.Next()
			return
		}

		retryAfter := int(decision.RetryAfter.Seconds())
		if retryAfter <= 0 {
			retryAfter = 1
		}

		audit.Log(c.Request.Context(), &auditDomain.SecurityLogEntry{
			EventType: auditDomain.EventRateLimit,
			Severity:  auditDomain.SeverityLow,
			IPAddress: ip,
			Success:   false,
			Message:   "rate limit exceeded",
			Metadata: map[string]any{
				"path":        c.FullPath(),
				"retry_after": retryAfter,
			},
		})

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		httputil.HandleErrorGin(c, apperrors.ErrRateLimited, logger)
		c.Abort()
	}
}
