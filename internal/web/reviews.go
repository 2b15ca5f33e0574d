package web

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/middleware"
	"bookreview/internal/models"
)

// reviewInputFromForm reads the review form. An unparsable rate is
// reported as a field error.
func reviewInputFromForm(c *fiber.Ctx) (models.ReviewInput, error) {
	input := models.ReviewInput{
		Title: c.FormValue("title"),
		Text:  c.FormValue("text"),
	}
	raw := strings.TrimSpace(c.FormValue("rate"))
	if raw == "" {
		return input, nil
	}
	rate, err := strconv.Atoi(raw)
	if err != nil {
		return input, apperrors.FieldError("rate", "Enter a whole number.")
	}
	input.Rate = &rate
	return input, nil
}

func reviewInputOf(r *models.Review) models.ReviewInput {
	rate := r.Rate
	return models.ReviewInput{Title: r.Title, Text: r.Text, Rate: &rate}
}

// HandleReviewCreateForm renders an empty review form for a book.
func (h *Handler) HandleReviewCreateForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.books.GetBook(c.UserContext(), id)
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "reviews/form", fiber.Map{
		"Title": "Review",
		"Mode":  "create",
		"Book":  book,
		"Form":  models.ReviewInput{},
	})
}

// HandleReviewCreate posts the current user's review of a book.
func (h *Handler) HandleReviewCreate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.books.GetBook(c.UserContext(), id)
	if err != nil {
		return err
	}

	input, err := reviewInputFromForm(c)
	data := fiber.Map{"Title": "Review", "Mode": "create", "Book": book, "Form": input}
	if err != nil {
		return h.formError(c, err, "reviews/form", data)
	}
	if _, err := h.reviews.CreateReview(c.UserContext(), middleware.CurrentUser(c), id, input); err != nil {
		return h.formError(c, err, "reviews/form", data)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your review was posted.")
	return c.Redirect(detailURL(id), fiber.StatusFound)
}

// HandleReviewUpdateForm renders the edit form of an owned review.
func (h *Handler) HandleReviewUpdateForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	review, err := h.reviews.GetReviewForEdit(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "reviews/form", fiber.Map{
		"Title": "Edit review",
		"Mode":  "update",
		"Book":  &review.Book,
		"Form":  reviewInputOf(review),
	})
}

// HandleReviewUpdate saves changes to an owned review.
func (h *Handler) HandleReviewUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	review, err := h.reviews.GetReviewForEdit(c.UserContext(), user, id)
	if err != nil {
		return err
	}

	input, err := reviewInputFromForm(c)
	data := fiber.Map{"Title": "Edit review", "Mode": "update", "Book": &review.Book, "Form": input}
	if err != nil {
		return h.formError(c, err, "reviews/form", data)
	}
	if _, err := h.reviews.UpdateReview(c.UserContext(), user, id, input); err != nil {
		return h.formError(c, err, "reviews/form", data)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your review was updated.")
	return c.Redirect(detailURL(review.BookID), fiber.StatusFound)
}

// HandleReviewDeleteConfirm asks the owner to confirm a deletion.
func (h *Handler) HandleReviewDeleteConfirm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	review, err := h.reviews.GetReviewForEdit(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return h.alreadyDeleted(c, err, "The requested review has already been deleted.")
	}
	return h.render(c, fiber.StatusOK, "reviews/confirm_delete", fiber.Map{
		"Title":  "Delete review",
		"Review": review,
	})
}

// HandleReviewDelete deletes an owned review.
func (h *Handler) HandleReviewDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	if _, err := h.reviews.GetReviewForEdit(c.UserContext(), user, id); err != nil {
		return h.alreadyDeleted(c, err, "The requested review has already been deleted.")
	}
	bookID, err := h.reviews.DeleteReview(c.UserContext(), user, id)
	if err != nil {
		return h.alreadyDeleted(c, err, "The requested review has already been deleted.")
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your review was deleted.")
	return c.Redirect(detailURL(bookID), fiber.StatusFound)
}
