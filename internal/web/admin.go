package web

import (
	"github.com/gofiber/fiber/v2"

	"bookreview/internal/middleware"
	"bookreview/internal/models"
)

const recentReviewLimit = 50

// HandleAdminDashboard lists users, books and recent reviews for staff.
func (h *Handler) HandleAdminDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	staff := middleware.CurrentUser(c)

	users, err := h.auth.ListUsers(ctx, staff)
	if err != nil {
		return err
	}
	list, err := h.books.ListBooks(ctx, models.BookFilter{})
	if err != nil {
		return err
	}
	reviews, err := h.reviews.RecentReviews(ctx, staff, recentReviewLimit)
	if err != nil {
		return err
	}

	return h.render(c, fiber.StatusOK, "admin/dashboard", fiber.Map{
		"Title":   "Administration",
		"Users":   users,
		"Books":   list.Books,
		"Reviews": reviews,
	})
}

// HandleAdminBookDelete deletes any book.
func (h *Handler) HandleAdminBookDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.books.DeleteBook(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	middleware.AddFlash(c, middleware.FlashSuccess, "The book was deleted.")
	return c.Redirect("/admin/", fiber.StatusFound)
}

// HandleAdminReviewDelete deletes any review.
func (h *Handler) HandleAdminReviewDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if _, err := h.reviews.DeleteReview(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return err
	}
	middleware.AddFlash(c, middleware.FlashSuccess, "The review was deleted.")
	return c.Redirect("/admin/", fiber.StatusFound)
}
