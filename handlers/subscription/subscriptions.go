package subscription

import (
	"fmt"
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/model"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ExpireRequest selects one subscription to expire; without it every
// overdue subscription is expired.
type ExpireRequest struct {
	SubscriptionID *int64 `json:"subscription_id" validate:"omitempty,min=1"`
}

// Current handles GET /api/subscriptions/current. Anonymous callers get null.
func (h *SubscriptionHandler) Current(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return c.JSON(fiber.Map{"subscription": nil})
	}

	sub, err := h.subscriptions.Current(c.UserContext(), id.Email)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch subscription")
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

// History handles GET /api/user/subscriptions
func (h *SubscriptionHandler) History(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	subs, err := h.subscriptions.History(c.UserContext(), id.Email)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs, "total": len(subs)})
}

// AccessStatus handles GET /api/user/access-status. A failed lookup answers
// with the no-access status so the frontend can still render.
func (h *SubscriptionHandler) AccessStatus(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	status, err := h.subscriptions.AccessStatus(c.UserContext(), id.Email)
	if err != nil {
		logger.FromContext(c.UserContext()).Warn("access status lookup failed",
			zap.String("email", id.Email), zap.Error(err))
		fallback := model.NoAccess(id.Email)
		return c.JSON(fallback)
	}
	return c.JSON(status)
}

// AdminList handles GET /api/admin/subscriptions
func (h *SubscriptionHandler) AdminList(c *fiber.Ctx) error {
	subs, err := h.subscriptions.ListSubscriptions(c.UserContext())
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// Grant handles POST /api/admin/subscriptions
func (h *SubscriptionHandler) Grant(c *fiber.Ctx) error {
	var req services.GrantInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	sub, created, err := h.subscriptions.Grant(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to grant subscription")
	}

	if created {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":      true,
			"message":      "Subscription created successfully",
			"subscription": sub,
		})
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Subscription extended successfully",
		"subscription": sub,
	})
}

// AdminFind handles GET /api/admin/subscriptions/find?email=
func (h *SubscriptionHandler) AdminFind(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return response.BadRequest(c, "Email parameter is required")
	}

	subs, err := h.subscriptions.History(c.UserContext(), email)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find subscriptions")
	}
	return c.JSON(fiber.Map{"subscriptions": subs})
}

// AdminUpdate handles PUT /api/admin/subscriptions/:id
func (h *SubscriptionHandler) AdminUpdate(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid subscription ID")
	}

	var req services.SubscriptionUpdate
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	sub, err := h.subscriptions.UpdateSubscription(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Subscription not found")
	}
	return c.JSON(fiber.Map{"success": true, "subscription": sub})
}

// AdminDelete handles DELETE /api/admin/subscriptions/:id
func (h *SubscriptionHandler) AdminDelete(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid subscription ID")
	}

	if err := h.subscriptions.DeleteSubscription(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete subscription")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Expire handles POST /api/admin/subscriptions/expire
func (h *SubscriptionHandler) Expire(c *fiber.Ctx) error {
	var req ExpireRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	var (
		count int
		err   error
	)
	if req.SubscriptionID != nil {
		count, err = h.subscriptions.Expire(c.UserContext(), *req.SubscriptionID, middleware.CallerToken(c)...)
	} else {
		count, err = h.subscriptions.ExpireAll(c.UserContext(), middleware.CallerToken(c)...)
	}
	if err != nil {
		return handlers.Upstream(c, err, "Failed to expire subscriptions")
	}

	logger.FromContext(c.UserContext()).Info("subscriptions expired", zap.Int("count", count))

	return c.JSON(fiber.Map{
		"success":      true,
		"expiredCount": count,
		"message":      expireMessage(count),
	})
}

func expireMessage(count int) string {
	switch count {
	case 0:
		return "No subscriptions to expire"
	case 1:
		return "1 subscription expired"
	default:
		return fmt.Sprintf("%d subscriptions expired", count)
	}
}
