// Package devapi is a small marketplace backend that speaks the same wire
// contract as the production API, so the portal can run end to end locally.
package devapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hirehub/portal/internal/auth"
	"github.com/hirehub/portal/internal/identity"
	"github.com/hirehub/portal/internal/middleware"
	"github.com/hirehub/portal/internal/wizard"
)

// BasePath prefixes every backend route.
const BasePath = "/api/v1"

// Deps aggregates the backend services.
type Deps struct {
	Identity *identity.Service
	Auth     *auth.Service
	Profiles *ProfileStore
	Points   wizard.Points
	DB       *pgxpool.Pool
	Logger   *slog.Logger
	// DevRoutes mounts the account state override used to drive onboarding
	// transitions by hand.
	DevRoutes bool
}

// New builds the backend Fiber application.
func New(appName string, d Deps) *fiber.App {
	if d.Points == nil {
		d.Points = wizard.DefaultPoints()
	}
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(d.Logger),
	})
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "memory"
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
				return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"status": fiber.Map{"postgres": dbStatus}})
			}
		}
		return c.JSON(fiber.Map{"status": fiber.Map{"postgres": dbStatus}})
	})

	api := app.Group(BasePath)
	auth.NewHandler(d.Identity, d.Auth).Register(api)

	h := &profileHandler{ids: d.Identity, store: d.Profiles, points: d.Points, logger: d.Logger}
	h.register(api, auth.Bearer(d.Auth))

	if d.DevRoutes {
		registerDevRoutes(api, d.Identity)
	}
	return app
}

// errorHandler answers in the backend envelope shape.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := http.StatusText(status)

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			status, message = fe.Code, fe.Message
		case errors.Is(err, identity.ErrNotFound), errors.Is(err, ErrRecordNotFound):
			status, message = http.StatusNotFound, err.Error()
		case errors.Is(err, wizard.ErrUnknownSection):
			status, message = http.StatusNotFound, err.Error()
		case errors.Is(err, ErrInvalidRecord):
			status, message = http.StatusUnprocessableEntity, err.Error()
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
	}
}
