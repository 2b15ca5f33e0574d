package handlers

import (
	"github.com/gofiber/fiber/v2"

	"bookreview/internal/logger"
	"bookreview/internal/middleware"
	"bookreview/internal/models"
	"bookreview/internal/services"
)

// AuthHandler handles HTTP requests for authentication and the current account.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the public authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterAccountRoutes registers the routes of the authenticated account.
func (h *AuthHandler) RegisterAccountRoutes(router fiber.Router) {
	router.Get("/me", h.HandleMe)
	router.Put("/me", h.HandleUpdateMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input models.SignupInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	user, err := h.authService.RegisterUser(c.UserContext(), input)
	if err != nil {
		return respondError(c, "Registration failed", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	user, token, err := h.authService.LoginUser(c.UserContext(), input)
	if err != nil {
		logger.Log.WithField("username", input.Username).Debug("API login failed")
		return respondError(c, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message":    "Login successful",
		"token":      token,
		"expires_in": int(h.authService.TokenDuration().Seconds()),
		"user":       user,
	})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

// HandleUpdateMe changes username and password and returns a fresh token.
func (h *AuthHandler) HandleUpdateMe(c *fiber.Ctx) error {
	var input models.ProfileInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	user, token, err := h.authService.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), input)
	if err != nil {
		return respondError(c, "Profile update failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"token":   token,
		"user":    user,
	})
}
