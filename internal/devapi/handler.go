package devapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hirehub/portal/internal/account"
	"github.com/hirehub/portal/internal/api"
	"github.com/hirehub/portal/internal/auth"
	"github.com/hirehub/portal/internal/gate"
	"github.com/hirehub/portal/internal/identity"
	"github.com/hirehub/portal/internal/wizard"
)

var documentSections = map[string]wizard.SectionKey{
	"personal":       wizard.SectionPersonal,
	"address":        wizard.SectionAddress,
	"family":         wizard.SectionFamily,
	"socio-economic": wizard.SectionSocioEconomic,
	"community":      wizard.SectionCommunity,
}

var listSections = map[string]wizard.SectionKey{
	"education":  wizard.SectionEducation,
	"experience": wizard.SectionExperience,
	"skills":     wizard.SectionSkills,
	"interests":  wizard.SectionInterests,
}

type profileHandler struct {
	ids    *identity.Service
	store  *ProfileStore
	points wizard.Points
	logger *slog.Logger
}

func (h *profileHandler) register(r fiber.Router, bearer fiber.Handler) {
	group := r.Group("/profile", bearer, requireVerifiedEmail)
	group.Get("/wizard/status", h.status)
	group.Put("/wizard/:section", h.saveSection)
	group.Post("/education/none", h.markNoFormalEducation)
	group.Post("/experience/fresher", h.markFresher)
	group.Get("/:list", h.list)
	group.Post("/:list", h.addRecord)
	group.Put("/:list/:id", h.updateRecord)
	group.Delete("/:list/:id", h.deleteRecord)
}

// requireVerifiedEmail answers the verification escape hatch for accounts
// that may not use the profile yet.
func requireVerifiedEmail(c *fiber.Ctx) error {
	acct, ok := auth.AccountFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "missing account")
	}
	if !acct.EmailVerified {
		return c.Status(http.StatusForbidden).JSON(fiber.Map{
			"success":    false,
			"code":       api.CodeVerificationRequired,
			"message":    "Verify your email to continue",
			"redirectTo": gate.PathVerifyEmail,
		})
	}
	if acct.UserType != account.UserTypeIndividual {
		return fiber.NewError(http.StatusForbidden, "profile wizard is for individual accounts")
	}
	return c.Next()
}

func accountID(c *fiber.Ctx) string {
	acct, _ := auth.AccountFrom(c)
	return acct.ID
}

func (h *profileHandler) status(c *fiber.Ctx) error {
	raw, lists := h.store.Snapshot(accountID(c))
	st := wizard.Compute(h.points, raw, lists)
	return ok(c, http.StatusOK, fiber.Map{
		"sections": st.Sections,
		"summary":  st.Summary,
		"profiles": raw,
	})
}

func (h *profileHandler) saveSection(c *fiber.Ctx) error {
	key, found := documentSections[c.Params("section")]
	if !found {
		return fiber.NewError(http.StatusNotFound, wizard.ErrUnknownSection.Error())
	}
	if err := h.store.SaveSection(accountID(c), key, c.Body()); err != nil {
		return err
	}
	return h.written(c, http.StatusOK, nil)
}

func listKey(c *fiber.Ctx) (wizard.SectionKey, error) {
	key, found := listSections[c.Params("list")]
	if !found {
		return "", fiber.NewError(http.StatusNotFound, wizard.ErrUnknownSection.Error())
	}
	return key, nil
}

func (h *profileHandler) list(c *fiber.Ctx) error {
	key, err := listKey(c)
	if err != nil {
		return err
	}
	_, lists := h.store.Snapshot(accountID(c))
	switch key {
	case wizard.SectionEducation:
		return ok(c, http.StatusOK, lists.Education)
	case wizard.SectionExperience:
		return ok(c, http.StatusOK, lists.Experience)
	case wizard.SectionSkills:
		return ok(c, http.StatusOK, lists.Skills)
	default:
		return ok(c, http.StatusOK, lists.Interests)
	}
}

func (h *profileHandler) addRecord(c *fiber.Ctx) error {
	key, err := listKey(c)
	if err != nil {
		return err
	}
	id, err := h.store.AddRecord(accountID(c), key, c.Body())
	if err != nil {
		return err
	}
	return h.written(c, http.StatusCreated, fiber.Map{"id": id})
}

func (h *profileHandler) updateRecord(c *fiber.Ctx) error {
	key, err := listKey(c)
	if err != nil {
		return err
	}
	if err := h.store.UpdateRecord(accountID(c), key, c.Params("id"), c.Body()); err != nil {
		return err
	}
	return h.written(c, http.StatusOK, nil)
}

func (h *profileHandler) deleteRecord(c *fiber.Ctx) error {
	key, err := listKey(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteRecord(accountID(c), key, c.Params("id")); err != nil {
		return err
	}
	return h.written(c, http.StatusOK, nil)
}

func (h *profileHandler) markNoFormalEducation(c *fiber.Ctx) error {
	h.store.MarkNoFormalEducation(accountID(c))
	return h.written(c, http.StatusOK, nil)
}

func (h *profileHandler) markFresher(c *fiber.Ctx) error {
	h.store.MarkFresher(accountID(c))
	return h.written(c, http.StatusOK, nil)
}

// written keeps the account's profileComplete flag in step with the wizard
// after every write.
func (h *profileHandler) written(c *fiber.Ctx, status int, data any) error {
	id := accountID(c)
	raw, lists := h.store.Snapshot(id)
	complete := wizard.Compute(h.points, raw, lists).Summary.IsProfileComplete
	if _, err := h.ids.Apply(c.UserContext(), id, identity.Changes{ProfileComplete: &complete}); err != nil {
		h.logger.Warn("update profile completeness", slog.String("account_id", id), slog.Any("error", err))
	}
	if data == nil {
		data = fiber.Map{"status": "saved"}
	}
	return ok(c, status, data)
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

type accountOverride struct {
	Phone              *string                     `json:"phone"`
	HasPreferences     *bool                       `json:"hasPreferences"`
	VerificationStatus *account.VerificationStatus `json:"verificationStatus"`
	ProfileComplete    *bool                       `json:"profileComplete"`
	RejectedReason     *string                     `json:"rejectedReason"`
	Permissions        []string                    `json:"permissions"`
}

// registerDevRoutes mounts PATCH /dev/accounts/:email, which stands in for
// the KYC review and payment workflows.
func registerDevRoutes(r fiber.Router, ids *identity.Service) {
	r.Patch("/dev/accounts/:email", func(c *fiber.Ctx) error {
		var req accountOverride
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		acct, err := ids.FindByEmail(c.UserContext(), c.Params("email"))
		if err != nil {
			return err
		}
		updated, err := ids.Apply(c.UserContext(), acct.ID, identity.Changes{
			Phone:              req.Phone,
			HasPreferences:     req.HasPreferences,
			VerificationStatus: req.VerificationStatus,
			ProfileComplete:    req.ProfileComplete,
			RejectedReason:     req.RejectedReason,
			Permissions:        req.Permissions,
		})
		if err != nil {
			return err
		}
		return ok(c, http.StatusOK, updated.Snapshot())
	})
}
