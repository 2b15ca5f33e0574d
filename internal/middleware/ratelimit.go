package middleware

import (
	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/ratelimit"
)

// RateLimit throttles POST requests per client IP. Rejected requests are
// passed to onLimit, or answered with a 429 JSON body when onLimit is nil.
func RateLimit(limiter *ratelimit.KeyedLimiter, onLimit fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}
		if limiter.Allow(c.IP()) {
			return c.Next()
		}

		logger.Log.WithField("ip", c.IP()).WithField("path", c.Path()).Warn("Rate limit exceeded")
		if onLimit != nil {
			return onLimit(c)
		}
		return c.Status(apperrors.StatusOf(apperrors.ErrRateLimited)).JSON(fiber.Map{
			"message": "Too many requests. Please try again later.",
			"error":   apperrors.MessageOf(apperrors.ErrRateLimited),
		})
	}
}
