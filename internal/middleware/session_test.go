package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/logging"
	"github.com/hirehub/portal/internal/session"
	"github.com/hirehub/portal/internal/wizard"
)

func TestSessionIssuesAndReusesCookie(t *testing.T) {
	reg := session.NewRegistry(api.Config{BaseURL: "http://backend.invalid"}, session.NewMemoryStore(), wizard.DefaultPoints(), time.Hour, logging.Discard())
	app := fiber.New()
	app.Use(RequestID())
	app.Use(Session(reg, SessionConfig{CookieName: "sid", TTL: time.Hour}))
	app.Get("/", func(c *fiber.Ctx) error {
		if SessionFrom(c) == nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(SessionIDFrom(c))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	cookies := resp.Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || !cookies[0].HttpOnly {
		t.Fatalf("expected one http-only session cookie, got %+v", cookies)
	}
	id := cookies[0].Value

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Cookies()[0].Value; got != id {
		t.Fatalf("expected session %s to be reused, got %s", id, got)
	}

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set("Cookie", "sid=not-a-uuid")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if got := resp.Cookies()[0].Value; got == "not-a-uuid" {
		t.Fatalf("expected malformed session id to be replaced")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 live sessions got %d", reg.Len())
	}
}
