package middleware

import (
	"fmt"
	"log"
	"time"

	"genius365/internal/caching"
	"genius365/internal/common"

	"github.com/labstack/echo/v4"
)

// RateLimitMiddleware throttles by client IP using the Redis cache service.
type RateLimitMiddleware struct {
	cacheSvc caching.CacheService
}

func NewRateLimitMiddleware(cacheSvc caching.CacheService) *RateLimitMiddleware {
	return &RateLimitMiddleware{cacheSvc: cacheSvc}
}

// Limit allows at most limit requests per window for a named route group,
// keyed by client IP. Redis failures fail open so an outage does not lock
// everyone out.
func (m *RateLimitMiddleware) Limit(name string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := fmt.Sprintf("%s:%s", name, c.RealIP())

			limited, err := m.cacheSvc.IsRateLimited(ctx, key, limit, window)
			if err != nil {
				log.Printf("Rate limit check failed for %s: %v", key, err)
				return next(c)
			}
			if limited {
				return common.SendRateLimitedError(c)
			}
			if err := m.cacheSvc.IncrementRateLimit(ctx, key, window); err != nil {
				log.Printf("Rate limit increment failed for %s: %v", key, err)
			}
			return next(c)
		}
	}
}
