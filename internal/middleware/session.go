package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/hirehub/portal/internal/session"
)

const (
	sessionIDLocal    = "session_id"
	sessionEntryLocal = "session_entry"
)

// SessionConfig controls the session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session binds the request to its session entry, issuing a new opaque id
// cookie when the browser has none or presents a malformed one.
func Session(reg *session.Registry, cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cfg.CookieName)
		if _, err := uuid.Parse(id); err != nil {
			id = reg.NewID()
		}
		c.Cookie(&fiber.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     "/",
			Expires:  time.Now().Add(cfg.TTL),
			HTTPOnly: true,
			Secure:   cfg.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})

		c.Locals(sessionIDLocal, id)
		c.Locals(sessionEntryLocal, reg.Get(c.UserContext(), id))
		return c.Next()
	}
}

// SessionIDFrom returns the session id bound by Session.
func SessionIDFrom(c *fiber.Ctx) string {
	id, _ := c.Locals(sessionIDLocal).(string)
	return id
}

// SessionFrom returns the session entry bound by Session.
func SessionFrom(c *fiber.Ctx) *session.Entry {
	e, _ := c.Locals(sessionEntryLocal).(*session.Entry)
	return e
}
