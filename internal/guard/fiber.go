package guard

import (
	"github.com/gofiber/fiber/v2"
)

// StateFunc extracts the session state for the current request.
type StateFunc func(c *fiber.Ctx) State

const decisionLocal = "guard_decision"

type fiberNavigator struct {
	c *fiber.Ctx
}

func (n fiberNavigator) Redirect(target string) error {
	return n.c.Redirect(target, fiber.StatusFound)
}

// Middleware renders the next handler only when the guard allows it.
func (g *Guard) Middleware(state StateFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := g.Decide(state(c), c.OriginalURL())
		c.Locals(decisionLocal, d)
		switch d.Action {
		case ActionLoading:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"view": "loading"})
		case ActionRedirect:
			return Enforce(d, fiberNavigator{c: c})
		}
		return c.Next()
	}
}

// DecisionFrom returns the decision recorded for the request, if any.
func DecisionFrom(c *fiber.Ctx) (Decision, bool) {
	d, ok := c.Locals(decisionLocal).(Decision)
	return d, ok
}
