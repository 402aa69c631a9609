package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/guard"
	"github.com/hirehub/portal/internal/middleware"
)

// RegisterAuthRoutes wires the public session endpoints.
func RegisterAuthRoutes(app *fiber.App, d Deps, rateLimiter fiber.Handler) {
	app.Get(gate.PathLogin, func(c *fiber.Ctx) error {
		e, err := entry(c)
		if err != nil {
			return err
		}
		st := e.Manager.EnsureChecked(c.UserContext())
		if st.IsAuthenticated {
			return c.Redirect(nextLocation(d.Resolver, st, c.Query("redirect")), fiber.StatusFound)
		}
		return c.JSON(fiber.Map{
			"view":     "login",
			"redirect": guard.SafeRedirect(c.Query("redirect"), ""),
			"error":    st.Error,
		})
	})

	app.Get(gate.PathUnauthorized, func(c *fiber.Ctx) error {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{"view": "unauthorized"})
	})

	group := app.Group("/auth")

	group.Post("/login", rateLimiter, func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email" form:"email"`
			Password string `json:"password" form:"password"`
			Redirect string `json:"redirect" form:"redirect"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid login payload")
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			return fiber.NewError(http.StatusBadRequest, "email and password are required")
		}
		e, err := entry(c)
		if err != nil {
			return err
		}
		if err := e.Manager.Login(c.UserContext(), strings.TrimSpace(req.Email), req.Password); err != nil {
			return c.Status(loginFailureStatus(err)).JSON(fiber.Map{"error": e.Manager.State().Error})
		}
		if req.Redirect == "" {
			req.Redirect = c.Query("redirect")
		}
		st := e.Manager.State()
		return c.JSON(fiber.Map{
			"account":    st.Account,
			"redirectTo": nextLocation(d.Resolver, st, req.Redirect),
		})
	})

	group.Post("/signup", rateLimiter, func(c *fiber.Ctx) error {
		var req api.SignupInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid signup payload")
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			return fiber.NewError(http.StatusBadRequest, "email and password are required")
		}
		if req.UserType != account.UserTypeIndividual && req.UserType != account.UserTypeEmployer {
			return fiber.NewError(http.StatusBadRequest, "userType must be individual or employer")
		}
		e, err := entry(c)
		if err != nil {
			return err
		}
		if err := e.Manager.Signup(c.UserContext(), req); err != nil {
			return c.Status(loginFailureStatus(err)).JSON(fiber.Map{"error": e.Manager.State().Error})
		}
		st := e.Manager.State()
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"account":    st.Account,
			"redirectTo": nextLocation(d.Resolver, st, ""),
		})
	})

	group.Post("/logout", func(c *fiber.Ctx) error {
		e, err := entry(c)
		if err != nil {
			return err
		}
		e.Manager.Logout(c.UserContext())
		d.Registry.Remove(middleware.SessionIDFrom(c))
		c.ClearCookie(d.Cfg.SessionCookie)
		return c.JSON(fiber.Map{"redirectTo": gate.PathLogin})
	})

	group.Get("/session", func(c *fiber.Ctx) error {
		e, err := entry(c)
		if err != nil {
			return err
		}
		st := e.Manager.EnsureChecked(c.UserContext())
		// A session read stands for an app load: pick up server-side
		// transitions such as a KYC decision.
		if st.IsAuthenticated && !st.IsLoading {
			if err := e.Manager.RefreshAccount(c.UserContext()); err != nil && !errors.Is(err, api.ErrSessionExpired) {
				return err
			}
			st = e.Manager.State()
		}
		body := fiber.Map{
			"account":         st.Account,
			"isAuthenticated": st.IsAuthenticated,
			"isLoading":       st.IsLoading,
		}
		if st.IsAuthenticated {
			body["requiredStep"] = d.Resolver.Resolve(st.Account)
		}
		return c.JSON(body)
	})
}

func loginFailureStatus(err error) int {
	status := api.StatusOf(err)
	switch {
	case status == http.StatusConflict || status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		return status
	case status >= 400 && status < 500:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}
