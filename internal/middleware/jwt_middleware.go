package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/models"
	"bookreview/internal/services"
)

// LocalUser is the fiber.Ctx locals key holding the authenticated *models.User.
const LocalUser = "user"

// AuthRequired is a Fiber middleware to check for a valid Bearer token.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		user, err := authService.CurrentUser(c.UserContext(), strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Log.WithError(err).Debug("JWT validation failed")
			return c.Status(apperrors.StatusOf(err)).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   apperrors.MessageOf(err),
			})
		}

		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// CurrentUser returns the authenticated user of the request, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalUser).(*models.User)
	return user
}
