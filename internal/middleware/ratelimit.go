package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "authservice/internal/errors"
	"authservice/internal/ratelimit"
)

// Rate-limit response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimit throttles each (client ip, path) pair to limit requests per
// window. Metrics are labelled by the route template so that unmatched path
// parameters cannot mint new series. The counter backend failing lets the
// request through unthrottled.
func RateLimit(limiter *ratelimit.Limiter, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			decision, err := limiter.Allow(c.Request().Context(), c.RealIP(), path, c.Path(), limit, window)
			if err != nil {
				slog.Warn("rate limit check skipped",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
			h.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
			h.Set(HeaderRateLimitReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))

			if !decision.Allowed {
				return apperrors.ErrTooManyRequests
			}
			return next(c)
		}
	}
}
