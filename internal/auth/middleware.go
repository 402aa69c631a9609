package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/identity"
)

const accountLocal = "account"

// Bearer validates the access token and stores the account in Locals.
func Bearer(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		acct, err := svc.Authenticate(c.UserContext(), strings.TrimSpace(authz[len("Bearer "):]))
		if errors.Is(err, ErrInvalidToken) {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if err != nil {
			return err
		}
		c.Locals(accountLocal, acct)
		return c.Next()
	}
}

// AccountFrom returns the account stored by Bearer.
func AccountFrom(c *fiber.Ctx) (identity.Account, bool) {
	acct, ok := c.Locals(accountLocal).(identity.Account)
	return acct, ok
}
