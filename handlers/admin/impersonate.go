package admin

import (
	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ImpersonateRequest names the user an admin wants to act as
type ImpersonateRequest struct {
	UserEmail string `json:"user_email" validate:"required,email"`
}

// Impersonate handles POST /api/admin/impersonate. The returned token is
// exchanged for a session cookie through POST /api/auth/callback.
func (h *AdminHandler) Impersonate(c *fiber.Ctx) error {
	if !h.impersonator.Enabled() {
		return response.Error(c, fiber.StatusNotImplemented, "Impersonation is not configured")
	}

	var req ImpersonateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	user, err := h.users.FindByEmail(c.UserContext(), req.UserEmail)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find user")
	}
	if user == nil {
		return response.NotFound(c, "User not found")
	}

	admin := ""
	if id, ok := middleware.GetIdentity(c); ok {
		admin = id.Email
	}

	token, expiresAt, err := h.impersonator.Issue(user.Email, user.Name, admin)
	if err != nil {
		logger.FromContext(c.UserContext()).Error("failed to issue impersonation token", zap.Error(err))
		return response.InternalServerError(c, "Failed to impersonate user")
	}

	logger.FromContext(c.UserContext()).Info("impersonation started",
		zap.String("admin", admin), zap.String("user", user.Email))

	return c.JSON(fiber.Map{
		"success":    true,
		"token":      token,
		"expires_at": expiresAt,
		"user_email": user.Email,
		"user_name":  user.Name,
	})
}
