package middleware

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/services"
)

// SessionCookie carries the session token of logged-in browsers.
const SessionCookie = "bookreview_session"

// LoginURL is where anonymous users are sent by LoginRequired.
const LoginURL = "/accounts/login/"

// Sessions manages cookie-backed login sessions.
type Sessions struct {
	auth   *services.AuthService
	ttl    time.Duration
	secure bool
}

// NewSessions creates a session manager. secure marks cookies HTTPS-only.
func NewSessions(auth *services.AuthService, secure bool) *Sessions {
	return &Sessions{auth: auth, ttl: auth.TokenDuration(), secure: secure}
}

// Load resolves the session cookie into the request user. Invalid or
// expired cookies are cleared and the request continues anonymously.
func (s *Sessions) Load() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookie)
		if token == "" {
			return c.Next()
		}
		user, err := s.auth.CurrentUser(c.UserContext(), token)
		if err != nil {
			s.Clear(c)
			return c.Next()
		}
		c.Locals(LocalUser, user)
		return c.Next()
	}
}

// Set stores token in the session cookie.
func (s *Sessions) Set(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (s *Sessions) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// LoginRequired redirects anonymous requests to the login page, remembering
// the requested path in the next parameter.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) != nil {
			return c.Next()
		}
		return c.Redirect(LoginURL+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
	}
}

// StaffRequired lets only staff users through. Anonymous users are sent
// to the login page; other users get 403.
func StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return c.Redirect(LoginURL+"?next="+url.QueryEscape(c.OriginalURL()), fiber.StatusFound)
		}
		if !user.IsStaff {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

// SafeNext returns next when it is a local absolute path, else fallback.
func SafeNext(next, fallback string) string {
	if next == "" || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
