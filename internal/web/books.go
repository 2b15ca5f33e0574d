package web

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/middleware"
	"bookreview/internal/models"
	"bookreview/internal/services"
)

func filterFromQuery(c *fiber.Ctx) models.BookFilter {
	return models.BookFilter{Query: c.Query("q"), Category: c.Query("cat")}
}

func searchBox(action, query, category string, tags []models.CategoryTag) fiber.Map {
	return fiber.Map{
		"Action":     action,
		"Query":      query,
		"Category":   category,
		"Categories": tags,
	}
}

func bookInputFromForm(c *fiber.Ctx) models.BookInput {
	return models.BookInput{
		Title:    c.FormValue("title"),
		Text:     c.FormValue("text"),
		Category: c.FormValue("category"),
	}
}

func bookInputOf(b *models.Book) models.BookInput {
	return models.BookInput{Title: b.Title, Text: b.Text, Category: b.Category}
}

func detailURL(bookID uint) string {
	return fmt.Sprintf("/book/%d/detail/", bookID)
}

// HandleIndex renders the top page with new books and the ranking.
func (h *Handler) HandleIndex(c *fiber.Ctx) error {
	view, err := h.books.Index(c.UserContext(), filterFromQuery(c), c.Query("page"))
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "index", fiber.Map{
		"Search":        searchBox("/", view.Query, view.Category, view.Categories),
		"Books":         view.Books,
		"Ranking":       view.Ranking,
		"Query":         view.Query,
		"Category":      view.Category,
		"CategoryLabel": models.CategoryLabel(view.Category),
	})
}

// HandleBookList renders the filtered book list.
func (h *Handler) HandleBookList(c *fiber.Ctx) error {
	list, err := h.books.ListBooks(c.UserContext(), filterFromQuery(c))
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "books/list", fiber.Map{
		"Title":         "Books",
		"Search":        searchBox("/book/", list.Query, list.Category, list.Categories),
		"Books":         list.Books,
		"Total":         list.Total,
		"Query":         list.Query,
		"Category":      list.Category,
		"CategoryLabel": list.CategoryLabel,
	})
}

// HandleBookDetail renders a book with its reviews.
func (h *Handler) HandleBookDetail(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	detail, err := h.books.GetBookDetail(c.UserContext(), id, middleware.CurrentUser(c))
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "books/detail", fiber.Map{
		"Title":   detail.Book.Title,
		"Book":    detail.Book,
		"Reviews": detail.Reviews,
		"IsOwner": detail.IsOwner,
	})
}

// HandleBookCreateForm renders an empty book form.
func (h *Handler) HandleBookCreateForm(c *fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, "books/form", fiber.Map{
		"Title": "Add a book",
		"Form":  models.BookInput{},
	})
}

// HandleBookCreate creates a book owned by the current user.
func (h *Handler) HandleBookCreate(c *fiber.Ctx) error {
	input := bookInputFromForm(c)
	data := fiber.Map{"Title": "Add a book", "Form": input}

	thumbnail, err := h.readUpload(c, "thumbnail")
	if err != nil {
		return h.formError(c, err, "books/form", data)
	}
	if _, err := h.books.CreateBook(c.UserContext(), middleware.CurrentUser(c), input, thumbnail); err != nil {
		return h.formError(c, err, "books/form", data)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "The book was added.")
	return c.Redirect("/book/", fiber.StatusFound)
}

// HandleBookUpdateForm renders the edit form of an owned book.
func (h *Handler) HandleBookUpdateForm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.books.GetBookForEdit(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return h.render(c, fiber.StatusOK, "books/form", fiber.Map{
		"Title": "Edit book",
		"Book":  book,
		"Form":  bookInputOf(book),
	})
}

// HandleBookUpdate saves changes to an owned book.
func (h *Handler) HandleBookUpdate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	book, err := h.books.GetBookForEdit(c.UserContext(), user, id)
	if err != nil {
		return err
	}

	input := bookInputFromForm(c)
	data := fiber.Map{"Title": "Edit book", "Book": book, "Form": input}

	thumbnail, err := h.readUpload(c, "thumbnail")
	if err != nil {
		return h.formError(c, err, "books/form", data)
	}
	change := services.ThumbnailChange{Data: thumbnail, Clear: c.FormValue("thumbnail-clear") != ""}
	if _, err := h.books.UpdateBook(c.UserContext(), user, id, input, change); err != nil {
		return h.formError(c, err, "books/form", data)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "The book was updated.")
	return c.Redirect(detailURL(id), fiber.StatusFound)
}

// HandleBookDeleteConfirm asks the owner to confirm a deletion.
func (h *Handler) HandleBookDeleteConfirm(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	book, err := h.books.GetBookForEdit(c.UserContext(), middleware.CurrentUser(c), id)
	if err != nil {
		return h.alreadyDeleted(c, err, "The requested book has already been deleted.")
	}
	return h.render(c, fiber.StatusOK, "books/confirm_delete", fiber.Map{
		"Title": "Delete book",
		"Book":  book,
	})
}

// HandleBookDelete deletes an owned book and its reviews.
func (h *Handler) HandleBookDelete(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	user := middleware.CurrentUser(c)
	// Staff use the admin dashboard to delete other users' books.
	if _, err := h.books.GetBookForEdit(c.UserContext(), user, id); err != nil {
		return h.alreadyDeleted(c, err, "The requested book has already been deleted.")
	}
	if err := h.books.DeleteBook(c.UserContext(), user, id); err != nil {
		return h.alreadyDeleted(c, err, "The requested book has already been deleted.")
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "The book was deleted.")
	return c.Redirect("/book/", fiber.StatusFound)
}

// alreadyDeleted turns a not-found error into a redirect to the book list
// with a notice. Other errors pass through.
func (h *Handler) alreadyDeleted(c *fiber.Ctx, err error, notice string) error {
	if !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	middleware.AddFlash(c, middleware.FlashInfo, notice)
	return c.Redirect("/book/", fiber.StatusFound)
}
