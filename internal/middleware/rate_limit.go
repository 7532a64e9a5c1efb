package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/draftdesk/identity/internal/constants"
	apperrors "github.com/draftdesk/identity/internal/errors"
	"github.com/draftdesk/identity/pkg/logger"
)

// rateLimiter tracks request timestamps per client IP over a sliding
// window. State is in-process; each instance enforces its own window.
type rateLimiter struct {
	mu         sync.Mutex
	requests   map[string][]time.Time
	maxRequest int
	window     time.Duration
}

func newRateLimiter(maxRequest int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		requests:   make(map[string][]time.Time),
		maxRequest: maxRequest,
		window:     window,
	}
}

// allow records the request and reports whether it fits the window.
// Stale entries are pruned on every call so the map stays bounded by
// active-client cardinality, same as the code stores.
func (rl *rateLimiter) allow(ip string, now time.Time) (remaining int, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.window)
	for client, stamps := range rl.requests {
		valid := stamps[:0]
		for _, t := range stamps {
			if t.After(cutoff) {
				valid = append(valid, t)
			}
		}
		if len(valid) > 0 {
			rl.requests[client] = valid
		} else {
			delete(rl.requests, client)
		}
	}

	stamps := rl.requests[ip]
	if len(stamps) >= rl.maxRequest {
		return 0, false
	}
	rl.requests[ip] = append(stamps, now)
	return rl.maxRequest - len(stamps) - 1, true
}

// RateLimit rejects clients that exceed maxRequest requests per window
// with the rate-limited error body the rest of the auth surface uses.
func RateLimit(maxRequest int, window time.Duration) gin.HandlerFunc {
	limiter := newRateLimiter(maxRequest, window)

	return func(c *gin.Context) {
		now := time.Now()
		ip := c.ClientIP()

		remaining, ok := limiter.allow(ip, now)
		if !ok {
			logger.GetLogger().Warn("Request rate limited",
				zap.String("client_ip", ip),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("max_requests", maxRequest),
				zap.Duration("window", window),
			)

			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(
				apperrors.ToHTTPStatus(apperrors.ErrRateLimited),
				constants.BuildErrorResponse(apperrors.GetErrorMessage(apperrors.ErrRateLimited), nil),
			)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequest))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", now.Add(window).Unix()))

		c.Next()
	}
}
