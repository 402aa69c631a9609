package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/guard"
	"github.com/hirehub/portal/internal/session"
	"github.com/hirehub/portal/internal/wizard"
)

var sectionAliases = map[string]wizard.SectionKey{
	"socio-economic": wizard.SectionSocioEconomic,
	"socioeconomic":  wizard.SectionSocioEconomic,
}

func parseSection(raw string) (wizard.SectionKey, error) {
	if key, ok := sectionAliases[raw]; ok {
		return key, nil
	}
	key := wizard.SectionKey(raw)
	if !key.Valid() {
		return "", fiber.NewError(http.StatusNotFound, wizard.ErrUnknownSection.Error())
	}
	return key, nil
}

func listSection(c *fiber.Ctx) (wizard.SectionKey, error) {
	key, err := parseSection(c.Params("list"))
	if err != nil {
		return "", err
	}
	if !key.ListBacked() {
		return "", fiber.NewError(http.StatusNotFound, wizard.ErrUnknownSection.Error())
	}
	return key, nil
}

func rawBody(c *fiber.Ctx) (json.RawMessage, error) {
	body := c.Body()
	if len(body) == 0 || !json.Valid(body) {
		return nil, fiber.NewError(http.StatusBadRequest, "body must be a JSON document")
	}
	return append(json.RawMessage(nil), body...), nil
}

type wizardOp func(ctx context.Context, svc *wizard.Service) (wizard.View, error)

// RegisterWizardRoutes wires the profile wizard for individuals. Writes are
// guarded by idempotency keys when Redis is available.
func RegisterWizardRoutes(app *fiber.App, d Deps, idempotency fiber.Handler) {
	protect := guard.New(d.Resolver, guard.WithUserTypes(account.UserTypeIndividual)).Middleware(sessionState)
	group := app.Group("/profile/wizard", protect)

	// Only backend writes carry an Idempotency-Key; loading and expanding
	// never leave the portal.
	writeRoute := func(method, path string, h fiber.Handler) {
		handlers := make([]fiber.Handler, 0, 2)
		if idempotency != nil {
			handlers = append(handlers, idempotency)
		}
		group.Add(method, path, append(handlers, h)...)
	}

	group.Get("", func(c *fiber.Ctx) error {
		e, err := entry(c)
		if err != nil {
			return err
		}
		view, err := e.Wizard.Load(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	group.Post("/expand/:section", func(c *fiber.Ctx) error {
		key, err := parseSection(c.Params("section"))
		if err != nil {
			return err
		}
		e, err := entry(c)
		if err != nil {
			return err
		}
		view, err := e.Wizard.Open(key)
		if errors.Is(err, wizard.ErrSectionLocked) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error(), "wizard": view})
		}
		if err != nil {
			return err
		}
		return c.JSON(view)
	})

	write := func(op func(c *fiber.Ctx) (wizardOp, error)) fiber.Handler {
		return func(c *fiber.Ctx) error {
			run, err := op(c)
			if err != nil {
				return err
			}
			e, err := entry(c)
			if err != nil {
				return err
			}
			view, err := run(c.UserContext(), e.Wizard)
			return respondWrite(c, d.Logger, e, view, err)
		}
	}

	writeRoute(fiber.MethodPut, "/sections/:section", write(func(c *fiber.Ctx) (wizardOp, error) {
		key, err := parseSection(c.Params("section"))
		if err != nil {
			return nil, err
		}
		if key.ListBacked() {
			return nil, fiber.NewError(http.StatusNotFound, wizard.ErrUnknownSection.Error())
		}
		payload, err := rawBody(c)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.SaveSection(ctx, key, payload)
		}, nil
	}))

	writeRoute(fiber.MethodPost, "/education/none", write(func(*fiber.Ctx) (wizardOp, error) {
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.MarkNoFormalEducation(ctx)
		}, nil
	}))

	writeRoute(fiber.MethodPost, "/experience/fresher", write(func(*fiber.Ctx) (wizardOp, error) {
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.MarkFresher(ctx)
		}, nil
	}))

	writeRoute(fiber.MethodPost, "/:list", write(func(c *fiber.Ctx) (wizardOp, error) {
		key, err := listSection(c)
		if err != nil {
			return nil, err
		}
		payload, err := rawBody(c)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.AddRecord(ctx, key, payload)
		}, nil
	}))

	writeRoute(fiber.MethodPut, "/:list/:id", write(func(c *fiber.Ctx) (wizardOp, error) {
		key, err := listSection(c)
		if err != nil {
			return nil, err
		}
		payload, err := rawBody(c)
		if err != nil {
			return nil, err
		}
		id := c.Params("id")
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.UpdateRecord(ctx, key, id, payload)
		}, nil
	}))

	writeRoute(fiber.MethodDelete, "/:list/:id", write(func(c *fiber.Ctx) (wizardOp, error) {
		key, err := listSection(c)
		if err != nil {
			return nil, err
		}
		id := c.Params("id")
		return func(ctx context.Context, svc *wizard.Service) (wizard.View, error) {
			return svc.RemoveRecord(ctx, key, id)
		}, nil
	}))
}

// respondWrite reports a wizard write. A failed save keeps the previous view
// and reports the error inline, unless the failure requires navigation, in
// which case it is left to the error handler.
func respondWrite(c *fiber.Ctx, logger *slog.Logger, e *session.Entry, view wizard.View, err error) error {
	if err != nil {
		var saveErr *wizard.SaveError
		if !errors.As(err, &saveErr) || requiresNavigation(err) {
			return err
		}
		status := api.StatusOf(err)
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   "could not save section",
			"section": saveErr.Section,
			"wizard":  view,
		})
	}

	// A save can flip profileComplete or move verification on the backend.
	if err := e.Manager.RefreshAccount(c.UserContext()); err != nil {
		if requiresNavigation(err) {
			return err
		}
		logger.Warn("refresh account after wizard save", slog.Any("error", err))
	}
	return c.JSON(view)
}

func requiresNavigation(err error) bool {
	var vErr *api.VerificationRequiredError
	return errors.Is(err, api.ErrSessionExpired) || errors.As(err, &vErr)
}
