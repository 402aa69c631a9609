package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/config"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/routes"
	"github.com/hirehub/portal/internal/session"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New instantiates the portal server. Sessions are kept in Redis when a
// client is given, in memory otherwise.
func New(cfg config.Config, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler(logger),
	})

	var store session.Store
	if cache != nil {
		store = session.NewRedisStore(cache, cfg.SessionTTL)
	} else {
		store = session.NewMemoryStore()
	}
	registry := session.NewRegistry(
		api.Config{BaseURL: cfg.BackendURL, Timeout: cfg.BackendTimeout},
		store,
		cfg.WizardPoints,
		cfg.SessionTTL,
		logger,
	)

	err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		Cache:    cache,
		Registry: registry,
		Resolver: gate.NewResolver(logger),
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
