package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"bookreview/internal/database"
)

// HealthHandler reports service health.
type HealthHandler struct {
	db        *gorm.DB
	mqEnabled bool
	startedAt time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *gorm.DB, mqEnabled bool) *HealthHandler {
	return &HealthHandler{db: db, mqEnabled: mqEnabled, startedAt: time.Now()}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HandleHealth)
}

// HandleHealth reports database and broker status.
func (h *HealthHandler) HandleHealth(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "connected"
	if err := database.Ping(h.db); err != nil {
		status = fiber.StatusServiceUnavailable
		dbStatus = "unavailable"
	}

	mqStatus := "disabled"
	if h.mqEnabled {
		mqStatus = "enabled"
	}

	healthy := "healthy"
	if status != fiber.StatusOK {
		healthy = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status":   healthy,
		"time":     time.Now().Format(time.RFC3339),
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
		"database": dbStatus,
		"rabbitmq": mqStatus,
	})
}
