package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/guard"
	"github.com/hirehub/portal/internal/middleware"
	"github.com/hirehub/portal/internal/wizard"
)

// ErrorHandler turns handler errors into responses. Errors that demand
// navigation become redirects: an expired session is cleared and sent to
// Login, and a verification-required response goes where the backend said.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e := middleware.SessionFrom(c); e != nil {
			if target, ok := e.Manager.Recover(c.UserContext(), err); ok {
				if target == gate.PathLogin && c.Method() == fiber.MethodGet {
					target = guard.LoginTarget(c.OriginalURL())
				}
				return c.Redirect(target, fiber.StatusFound)
			}
		}

		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var fe *fiber.Error
		var apiErr *api.APIError
		switch {
		case errors.As(err, &fe):
			status, message = fe.Code, fe.Message
		case errors.Is(err, wizard.ErrUnknownSection):
			status, message = http.StatusNotFound, err.Error()
		case errors.Is(err, wizard.ErrSectionLocked):
			status, message = http.StatusConflict, err.Error()
		case errors.As(err, &apiErr):
			if apiErr.Status >= 400 && apiErr.Status < 500 {
				status, message = apiErr.Status, apiErr.Message
			} else {
				status, message = http.StatusBadGateway, "backend unavailable"
			}
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", middleware.RequestIDFrom(c)),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}
