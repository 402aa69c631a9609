package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/identity"
)

// Handler exposes the account and session endpoints of the dev backend.
type Handler struct {
	ids *identity.Service
	svc *Service
}

// NewHandler builds an auth handler.
func NewHandler(ids *identity.Service, svc *Service) *Handler {
	return &Handler{ids: ids, svc: svc}
}

// Register wires the handler under r.
func (h *Handler) Register(r fiber.Router) {
	group := r.Group("/auth")
	group.Post("/signup", h.Signup)
	group.Post("/login", h.Login)
	group.Post("/refresh", h.Refresh)

	bearer := Bearer(h.svc)
	group.Post("/logout", bearer, h.Logout)
	group.Get("/me", bearer, h.Me)
	group.Put("/me/contact", bearer, h.UpdateContact)
	group.Put("/me/preferences", bearer, h.UpdatePreferences)
	group.Post("/verify-email/resend", bearer, h.ResendVerification)
	group.Post("/verify-email", bearer, h.VerifyEmail)
}

type sessionResponse struct {
	User         account.Snapshot `json:"user"`
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken"`
	ExpiresIn    int64            `json:"expiresIn"`
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

func (h *Handler) session(c *fiber.Ctx, status int, acct identity.Account) error {
	pair, err := h.svc.Issue(acct)
	if err != nil {
		return err
	}
	return ok(c, status, sessionResponse{
		User:         acct.Snapshot(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

type signupRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Name     string           `json:"name"`
	UserType account.UserType `json:"userType"`
}

// Signup creates an account and returns a token pair.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.ids.Register(c.UserContext(), identity.Registration{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		UserType: req.UserType,
	})
	if errors.Is(err, identity.ErrExists) {
		return fiber.NewError(http.StatusConflict, "email already registered")
	}
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.session(c, http.StatusCreated, acct)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if errors.Is(err, identity.ErrInvalidCredentials) {
		return fiber.NewError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return err
	}
	return h.session(c, http.StatusOK, acct)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the token pair using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	pair, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if errors.Is(err, ErrInvalidToken) {
		return fiber.NewError(http.StatusUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, pair)
}

// Logout invalidates existing tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	acct, _ := AccountFrom(c)
	if err := h.svc.Logout(c.UserContext(), acct.ID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, fiber.Map{"status": "logged_out"})
}

// Me returns the caller's account snapshot.
func (h *Handler) Me(c *fiber.Ctx) error {
	acct, _ := AccountFrom(c)
	return ok(c, http.StatusOK, acct.Snapshot())
}

// UpdateContact stores the caller's phone number.
func (h *Handler) UpdateContact(c *fiber.Ctx) error {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := c.BodyParser(&req); err != nil || req.Phone == "" {
		return fiber.NewError(http.StatusBadRequest, "phone is required")
	}
	return h.apply(c, identity.Changes{Phone: &req.Phone})
}

// UpdatePreferences records that the caller has set job preferences.
func (h *Handler) UpdatePreferences(c *fiber.Ctx) error {
	set := true
	return h.apply(c, identity.Changes{HasPreferences: &set})
}

func (h *Handler) apply(c *fiber.Ctx, ch identity.Changes) error {
	acct, _ := AccountFrom(c)
	updated, err := h.ids.Apply(c.UserContext(), acct.ID, ch)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated.Snapshot())
}

// ResendVerification mails a fresh verification token.
func (h *Handler) ResendVerification(c *fiber.Ctx) error {
	acct, _ := AccountFrom(c)
	err := h.ids.ResendVerification(c.UserContext(), acct.ID)
	if errors.Is(err, identity.ErrAlreadyVerified) {
		return fiber.NewError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusAccepted, fiber.Map{"status": "sent"})
}

// VerifyEmail consumes a verification token.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, _ := AccountFrom(c)
	updated, err := h.ids.VerifyEmail(c.UserContext(), acct.ID, req.Token)
	if errors.Is(err, identity.ErrInvalidToken) {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, updated.Snapshot())
}
