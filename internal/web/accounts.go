package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/middleware"
	"bookreview/internal/models"
)

const invalidLoginMessage = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// HandleLoginForm renders the login form.
func (h *Handler) HandleLoginForm(c *fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, "accounts/login", fiber.Map{
		"Title": "Log in",
		"Form":  models.LoginInput{},
		"Next":  c.Query("next"),
	})
}

// HandleLogin starts a session and redirects to next, when it is local.
func (h *Handler) HandleLogin(c *fiber.Ctx) error {
	input := models.LoginInput{
		Username: c.FormValue("username"),
		Password: c.FormValue("password"),
	}
	next := c.FormValue("next")
	data := fiber.Map{"Title": "Log in", "Form": models.LoginInput{Username: input.Username}, "Next": next}

	user, token, err := h.auth.LoginUser(c.UserContext(), input)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			data["Errors"] = map[string]string{"__all__": invalidLoginMessage}
			return h.render(c, fiber.StatusUnauthorized, "accounts/login", data)
		}
		return h.formError(c, err, "accounts/login", data)
	}

	h.sessions.Set(c, token)
	logger.Log.WithField("user_id", user.ID).Info("User logged in")
	return c.Redirect(middleware.SafeNext(next, "/"), fiber.StatusFound)
}

// HandleLogout ends the session.
func (h *Handler) HandleLogout(c *fiber.Ctx) error {
	h.sessions.Clear(c)
	middleware.AddFlash(c, middleware.FlashInfo, "You have been logged out.")
	return c.Redirect("/", fiber.StatusFound)
}

// HandleSignupForm renders the registration form.
func (h *Handler) HandleSignupForm(c *fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, "accounts/signup", fiber.Map{
		"Title": "Sign up",
		"Form":  models.SignupInput{},
	})
}

// HandleSignup registers an account. The new user still has to log in.
func (h *Handler) HandleSignup(c *fiber.Ctx) error {
	input := models.SignupInput{
		Username:  c.FormValue("username"),
		Password1: c.FormValue("password1"),
		Password2: c.FormValue("password2"),
	}
	data := fiber.Map{"Title": "Sign up", "Form": models.SignupInput{Username: input.Username}}

	if _, err := h.auth.RegisterUser(c.UserContext(), input); err != nil {
		return h.formError(c, err, "accounts/signup", data)
	}

	middleware.AddFlash(c, middleware.FlashSuccess, "Your account was created. Please log in.")
	return c.Redirect("/", fiber.StatusFound)
}

// HandleProfileForm renders the username and password form.
func (h *Handler) HandleProfileForm(c *fiber.Ctx) error {
	return h.render(c, fiber.StatusOK, "accounts/profile", fiber.Map{
		"Title": "Profile",
		"Form":  models.ProfileInput{Username: middleware.CurrentUser(c).Username},
	})
}

// HandleProfileUpdate changes username and password and keeps the user
// logged in with a fresh session.
func (h *Handler) HandleProfileUpdate(c *fiber.Ctx) error {
	input := models.ProfileInput{
		Username:        c.FormValue("username"),
		CurrentPassword: c.FormValue("current_password"),
		NewPassword1:    c.FormValue("new_password1"),
		NewPassword2:    c.FormValue("new_password2"),
	}
	data := fiber.Map{"Title": "Profile", "Form": models.ProfileInput{Username: input.Username}}

	_, token, err := h.auth.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), input)
	if err != nil {
		return h.formError(c, err, "accounts/profile", data)
	}

	h.sessions.Set(c, token)
	middleware.AddFlash(c, middleware.FlashSuccess, "Your profile was updated.")
	return c.Redirect("/accounts/profile/", fiber.StatusFound)
}
