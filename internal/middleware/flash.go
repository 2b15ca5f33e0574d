package middleware

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"bookreview/internal/logger"
)

const (
	flashCookie = "bookreview_flash"
	localFlash  = "flashes"
)

// Flash levels.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
)

// FlashMessage is a one-shot notice shown after a redirect.
type FlashMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash queues a notice for the next rendered page.
func AddFlash(c *fiber.Ctx, level, message string) {
	msgs := append(pendingFlashes(c), FlashMessage{Level: level, Message: message})
	raw, err := json.Marshal(msgs)
	if err != nil {
		logger.Log.WithError(err).Warn("Failed to encode flash message")
		return
	}
	c.Locals(localFlash+".pending", msgs)
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func pendingFlashes(c *fiber.Ctx) []FlashMessage {
	msgs, _ := c.Locals(localFlash + ".pending").([]FlashMessage)
	return msgs
}

// Flashes moves notices from the flash cookie into the request and clears
// the cookie, so each notice is shown once.
func Flashes() fiber.Handler {
	return func(c *fiber.Ctx) error {
		value := c.Cookies(flashCookie)
		if value == "" {
			return c.Next()
		}

		var msgs []FlashMessage
		if raw, err := base64.RawURLEncoding.DecodeString(value); err == nil {
			if err := json.Unmarshal(raw, &msgs); err != nil {
				msgs = nil
			}
		}
		c.Locals(localFlash, msgs)
		c.ClearCookie(flashCookie)
		return c.Next()
	}
}

// FlashesOf returns the notices to display on this request.
func FlashesOf(c *fiber.Ctx) []FlashMessage {
	msgs, _ := c.Locals(localFlash).([]FlashMessage)
	return msgs
}
