package handlers

import (
	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
)

// respondError writes err as a JSON error body with the matching status.
func respondError(c *fiber.Ctx, message string, err error) error {
	status := apperrors.StatusOf(err)
	if status >= fiber.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.Path()).Error(message)
	} else {
		logger.Log.WithError(err).WithField("path", c.Path()).Debug(message)
	}

	body := fiber.Map{
		"message": message,
		"error":   apperrors.MessageOf(err),
	}
	if fields := apperrors.FieldsOf(err); fields != nil {
		body["errors"] = fields
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// parseID parses the :id route parameter.
func parseID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NotFoundf("invalid id %q", c.Params("id"))
	}
	return uint(id), nil
}

// ErrorHandler answers unhandled API errors with JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}
	return respondError(c, "Request failed", err)
}
