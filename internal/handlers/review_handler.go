package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/middleware"
	"bookreview/internal/models"
	"bookreview/internal/services"
)

// ReviewHandler handles HTTP requests for reviews.
type ReviewHandler struct {
	service *services.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		service: service,
	}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/books/:id/reviews", h.HandleCreateReview)
	reviewRoutes := router.Group("/reviews")
	reviewRoutes.Get("/:id", h.HandleGetReview)
	reviewRoutes.Put("/:id", h.HandleUpdateReview)
	reviewRoutes.Delete("/:id", h.HandleDeleteReview)
}

// HandleCreateReview posts the caller's review of a book.
func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	bookID, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not create review", err)
	}
	var input models.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	review, err := h.service.CreateReview(c.UserContext(), middleware.CurrentUser(c), bookID, input)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not review book %d", bookID), err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// HandleGetReview retrieves a single review.
func (h *ReviewHandler) HandleGetReview(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not retrieve review", err)
	}
	review, err := h.service.GetReview(c.UserContext(), id)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve review %d", id), err)
	}
	return c.JSON(review)
}

// HandleUpdateReview updates a review owned by the caller.
func (h *ReviewHandler) HandleUpdateReview(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not update review", err)
	}
	var input models.ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	review, err := h.service.UpdateReview(c.UserContext(), middleware.CurrentUser(c), id, input)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not update review %d", id), err)
	}
	return c.JSON(review)
}

// HandleDeleteReview deletes a review owned by the caller.
func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not delete review", err)
	}
	if _, err := h.service.DeleteReview(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, fmt.Sprintf("Could not delete review %d", id), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
