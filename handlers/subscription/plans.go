package subscription

import (
	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// SubscriptionHandler handles plans and subscriptions
type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
	validator     *validation.Validator
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		validator:     validation.NewValidator(),
	}
}

// ListPlans handles GET /api/plans, active plans in display order
func (h *SubscriptionHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.subscriptions.ListPlans(c.UserContext(), false)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch plans")
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// AdminListPlans handles GET /api/admin/plans, inactive plans included
func (h *SubscriptionHandler) AdminListPlans(c *fiber.Ctx) error {
	plans, err := h.subscriptions.ListPlans(c.UserContext(), true)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch plans")
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// bindPlan parses and validates a plan body. When ok is false the error
// response has been written and err is what the handler returns.
func (h *SubscriptionHandler) bindPlan(c *fiber.Ctx) (req services.PlanInput, ok bool, err error) {
	if err := c.BodyParser(&req); err != nil {
		return req, false, response.BadRequest(c, "Invalid request body")
	}
	req.Name = validation.SanitizeString(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		return req, false, response.ValidationError(c, validation.FormatValidationErrors(err))
	}
	return req, true, nil
}

// SavePlan handles POST /api/admin/plans. A body carrying an id updates that
// plan, otherwise a new one is created.
func (h *SubscriptionHandler) SavePlan(c *fiber.Ctx) error {
	req, ok, err := h.bindPlan(c)
	if !ok {
		return err
	}

	if req.ID > 0 {
		plan, err := h.subscriptions.UpdatePlan(c.UserContext(), req.ID, req, middleware.CallerToken(c)...)
		if err != nil {
			return handlers.Upstream(c, err, "Plan not found")
		}
		return c.JSON(fiber.Map{"success": true, "plan": plan, "message": "Plan updated successfully"})
	}

	plan, err := h.subscriptions.CreatePlan(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create plan")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"plan":    plan,
		"message": "Plan created successfully",
	})
}

// UpdatePlan handles PUT /api/admin/plans/:id
func (h *SubscriptionHandler) UpdatePlan(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid plan ID")
	}
	req, ok, err := h.bindPlan(c)
	if !ok {
		return err
	}

	plan, err := h.subscriptions.UpdatePlan(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Plan not found")
	}
	return c.JSON(fiber.Map{"success": true, "plan": plan, "message": "Plan updated successfully"})
}

// DeletePlan handles DELETE /api/admin/plans/:id
func (h *SubscriptionHandler) DeletePlan(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid plan ID")
	}

	if err := h.subscriptions.DeletePlan(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete plan")
	}
	return c.JSON(fiber.Map{"success": true})
}
