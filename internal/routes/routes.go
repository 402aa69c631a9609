package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/hirehub/portal/internal/config"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/guard"
	"github.com/hirehub/portal/internal/middleware"
	"github.com/hirehub/portal/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	Cache    *redis.Client
	Registry *session.Registry
	Resolver *gate.Resolver
	Logger   *slog.Logger
}

// Setup configures middlewares and all portal routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Registry == nil || d.Resolver == nil {
		return fmt.Errorf("session registry and gate resolver are required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	app.Use(middleware.Session(d.Registry, middleware.SessionConfig{
		CookieName: d.Cfg.SessionCookie,
		TTL:        d.Cfg.SessionTTL,
		Secure:     !d.Cfg.IsDevelopment(),
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterAuthRoutes(app, d, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute, d.Logger))
	RegisterOnboardingRoutes(app, d)

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterWizardRoutes(app, d, idempotency)

	return nil
}

// sessionState runs the one-time auth probe for the session and reports the
// state the guard should decide on.
func sessionState(c *fiber.Ctx) guard.State {
	e := middleware.SessionFrom(c)
	if e == nil {
		return guard.State{}
	}
	e.Manager.EnsureChecked(c.UserContext())
	return e.Manager.GuardState()
}

func entry(c *fiber.Ctx) (*session.Entry, error) {
	e := middleware.SessionFrom(c)
	if e == nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "session unavailable")
	}
	return e, nil
}

// nextLocation is where the browser should go once the session changed: the
// required onboarding step if any, else the requested local path.
func nextLocation(resolver *gate.Resolver, st session.State, requested string) string {
	if step := resolver.Resolve(st.Account); step.Required() {
		return step.Path()
	}
	return guard.SafeRedirect(requested, gate.PathDashboard)
}
