package handlers

import (
	"encoding/base64"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/middleware"
	"bookreview/internal/models"
	"bookreview/internal/services"
)

// BookHandler handles HTTP requests for books, the ranking and categories.
type BookHandler struct {
	service *services.BookService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(service *services.BookService) *BookHandler {
	return &BookHandler{
		service: service,
	}
}

// BookRequest is the JSON body for creating or updating a book. Thumbnail
// is an optional base64-encoded image.
type BookRequest struct {
	models.BookInput
	Thumbnail      string `json:"thumbnail"`
	ClearThumbnail bool   `json:"clear_thumbnail"`
}

func (r BookRequest) thumbnail() ([]byte, error) {
	if r.Thumbnail == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(r.Thumbnail)
	if err != nil {
		return nil, apperrors.FieldError("thumbnail", "Thumbnail must be base64 encoded.")
	}
	return data, nil
}

// RegisterRoutes registers the book routes with the Fiber app.
func (h *BookHandler) RegisterRoutes(router fiber.Router) {
	bookRoutes := router.Group("/books")
	bookRoutes.Get("/", h.HandleGetBooks)
	bookRoutes.Post("/", h.HandleCreateBook)
	bookRoutes.Get("/:id", h.HandleGetBook)
	bookRoutes.Put("/:id", h.HandleUpdateBook)
	bookRoutes.Delete("/:id", h.HandleDeleteBook)

	router.Get("/ranking", h.HandleRanking)
	router.Get("/categories", h.HandleCategories)
}

// HandleGetBooks lists books filtered by ?q= and ?cat=.
func (h *BookHandler) HandleGetBooks(c *fiber.Ctx) error {
	list, err := h.service.ListBooks(c.UserContext(), models.BookFilter{Query: c.Query("q"), Category: c.Query("cat")})
	if err != nil {
		return respondError(c, "Could not retrieve books", err)
	}
	return c.JSON(fiber.Map{
		"books":      list.Books,
		"total":      list.Total,
		"categories": list.Categories,
	})
}

// HandleGetBook retrieves a single book with its reviews.
func (h *BookHandler) HandleGetBook(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not retrieve book", err)
	}
	detail, err := h.service.GetBookDetail(c.UserContext(), id, middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not retrieve book %d", id), err)
	}
	return c.JSON(fiber.Map{
		"book":     detail.Book,
		"reviews":  detail.Reviews,
		"is_owner": detail.IsOwner,
	})
}

// HandleCreateBook creates a book owned by the caller.
func (h *BookHandler) HandleCreateBook(c *fiber.Ctx) error {
	var req BookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	thumbnail, err := req.thumbnail()
	if err != nil {
		return respondError(c, "Could not create book", err)
	}

	book, err := h.service.CreateBook(c.UserContext(), middleware.CurrentUser(c), req.BookInput, thumbnail)
	if err != nil {
		return respondError(c, "Could not create book", err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// HandleUpdateBook updates a book owned by the caller.
func (h *BookHandler) HandleUpdateBook(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not update book", err)
	}
	var req BookRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	thumbnail, err := req.thumbnail()
	if err != nil {
		return respondError(c, "Could not update book", err)
	}

	change := services.ThumbnailChange{Data: thumbnail, Clear: req.ClearThumbnail}
	book, err := h.service.UpdateBook(c.UserContext(), middleware.CurrentUser(c), id, req.BookInput, change)
	if err != nil {
		return respondError(c, fmt.Sprintf("Could not update book %d", id), err)
	}
	return c.JSON(book)
}

// HandleDeleteBook deletes a book and its reviews.
func (h *BookHandler) HandleDeleteBook(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, "Could not delete book", err)
	}
	if err := h.service.DeleteBook(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return respondError(c, fmt.Sprintf("Could not delete book %d", id), err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleRanking returns a page of reviewed books ordered by average rating.
func (h *BookHandler) HandleRanking(c *fiber.Ctx) error {
	filter := models.BookFilter{Query: c.Query("q"), Category: c.Query("cat")}
	ranking, err := h.service.Ranking(c.UserContext(), filter, c.Query("page"))
	if err != nil {
		return respondError(c, "Could not retrieve ranking", err)
	}
	return c.JSON(fiber.Map{
		"books": ranking.Books,
		"page":  ranking.Page,
	})
}

// HandleCategories lists the selectable categories and those in use.
func (h *BookHandler) HandleCategories(c *fiber.Ctx) error {
	used, err := h.service.Categories(c.UserContext(), 0)
	if err != nil {
		return respondError(c, "Could not retrieve categories", err)
	}
	return c.JSON(fiber.Map{
		"choices": models.Categories(),
		"in_use":  used,
	})
}
