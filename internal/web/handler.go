// Package web serves the HTML interface: browsing, book and review forms,
// accounts and the staff dashboard.
package web

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/middleware"
	"bookreview/internal/ratelimit"
	"bookreview/internal/services"
)

const layout = "layouts/base"

// Handler handles HTTP requests for the HTML pages.
type Handler struct {
	auth      *services.AuthService
	books     *services.BookService
	reviews   *services.ReviewService
	sessions  *middleware.Sessions
	limiter   *ratelimit.KeyedLimiter
	maxUpload int64
}

// NewHandler creates a new Handler. limiter may be nil to disable throttling.
func NewHandler(auth *services.AuthService, books *services.BookService, reviews *services.ReviewService, sessions *middleware.Sessions, limiter *ratelimit.KeyedLimiter, maxUpload int64) *Handler {
	return &Handler{
		auth:      auth,
		books:     books,
		reviews:   reviews,
		sessions:  sessions,
		limiter:   limiter,
		maxUpload: maxUpload,
	}
}

// RegisterRoutes registers the HTML routes. Session and flash middleware
// are installed by the caller.
func (h *Handler) RegisterRoutes(router fiber.Router) {
	loginRequired := middleware.LoginRequired()

	router.Get("/", h.HandleIndex)

	bookRoutes := router.Group("/book", loginRequired)
	bookRoutes.Get("/", h.HandleBookList)
	bookRoutes.Get("/create/", h.HandleBookCreateForm)
	bookRoutes.Post("/create/", h.HandleBookCreate)
	bookRoutes.Get("/:id/detail/", h.HandleBookDetail)
	bookRoutes.Get("/:id/update/", h.HandleBookUpdateForm)
	bookRoutes.Post("/:id/update/", h.HandleBookUpdate)
	bookRoutes.Get("/:id/delete/", h.HandleBookDeleteConfirm)
	bookRoutes.Post("/:id/delete/", h.HandleBookDelete)
	bookRoutes.Get("/:id/review/", h.HandleReviewCreateForm)
	bookRoutes.Post("/:id/review/", h.HandleReviewCreate)

	reviewRoutes := router.Group("/review", loginRequired)
	reviewRoutes.Get("/:id/edit/", h.HandleReviewUpdateForm)
	reviewRoutes.Post("/:id/edit/", h.HandleReviewUpdate)
	reviewRoutes.Get("/:id/delete/", h.HandleReviewDeleteConfirm)
	reviewRoutes.Post("/:id/delete/", h.HandleReviewDelete)

	accountRoutes := router.Group("/accounts")
	accountRoutes.Get("/login/", h.HandleLoginForm)
	accountRoutes.Post("/login/", h.throttle("accounts/login"), h.HandleLogin)
	accountRoutes.Post("/logout/", h.HandleLogout)
	accountRoutes.Get("/signup/", h.HandleSignupForm)
	accountRoutes.Post("/signup/", h.throttle("accounts/signup"), h.HandleSignup)
	accountRoutes.Get("/profile/", loginRequired, h.HandleProfileForm)
	accountRoutes.Post("/profile/", loginRequired, h.HandleProfileUpdate)

	adminRoutes := router.Group("/admin", middleware.StaffRequired())
	adminRoutes.Get("/", h.HandleAdminDashboard)
	adminRoutes.Post("/books/:id/delete", h.HandleAdminBookDelete)
	adminRoutes.Post("/reviews/:id/delete", h.HandleAdminReviewDelete)
}

// throttle limits form posts per client IP, re-rendering view with 429.
func (h *Handler) throttle(view string) fiber.Handler {
	if h.limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(h.limiter, func(c *fiber.Ctx) error {
		return h.render(c, fiber.StatusTooManyRequests, view, fiber.Map{
			"Errors": map[string]string{"__all__": "Too many attempts. Please wait a minute and try again."},
			"Form":   fiber.Map{"Username": c.FormValue("username")},
			"Next":   c.FormValue("next"),
		})
	})
}

// render executes a page inside the base layout with the values every
// page needs.
func (h *Handler) render(c *fiber.Ctx, status int, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = map[string]string{}
	}
	data["CurrentUser"] = middleware.CurrentUser(c)
	data["Flashes"] = middleware.FlashesOf(c)
	data["CSRF"] = csrfToken(c)
	return c.Status(status).Render(view, data, layout)
}

// formError re-renders view for a validation failure, or hands any other
// error to the error handler.
func (h *Handler) formError(c *fiber.Ctx, err error, view string, data fiber.Map) error {
	fields := apperrors.FieldsOf(err)
	if fields == nil {
		return err
	}
	data["Errors"] = fields
	return h.render(c, fiber.StatusUnprocessableEntity, view, data)
}

func csrfToken(c *fiber.Ctx) string {
	token, _ := c.Locals("csrf").(string)
	return token
}

// paramID parses the :id route parameter. Malformed IDs are 404s.
func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

// readUpload returns the bytes of an optional file field. Oversized files
// are rejected before being read.
func (h *Handler) readUpload(c *fiber.Ctx, field string) ([]byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, apperrors.FieldError(field, "The submitted data was not a file. Check the encoding type on the form.")
	}
	if fh.Size == 0 {
		return nil, nil
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return nil, apperrors.FieldError(field, "The uploaded file is too large.")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// ErrorHandler renders error pages for HTML requests.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "A server error occurred."

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
		message = fe.Message
	case apperrors.StatusOf(err) != fiber.StatusInternalServerError:
		status = apperrors.StatusOf(err)
		message = apperrors.MessageOf(err)
	}

	switch status {
	case fiber.StatusNotFound:
		message = "The requested page was not found."
	case fiber.StatusForbidden:
		message = "You do not have permission to access this page."
	}
	if status >= fiber.StatusInternalServerError {
		logger.Log.WithError(err).WithField("path", c.Path()).Error("Request failed")
	}

	data := fiber.Map{
		"Title":       strconv.Itoa(status),
		"Status":      status,
		"Message":     message,
		"CurrentUser": middleware.CurrentUser(c),
		"Flashes":     middleware.FlashesOf(c),
		"CSRF":        csrfToken(c),
	}
	if renderErr := c.Status(status).Render("errors/error", data, layout); renderErr != nil {
		logger.Log.WithError(renderErr).Error("Failed to render error page")
		return c.Status(status).SendString(message)
	}
	return nil
}
