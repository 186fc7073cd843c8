package auth

import (
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateNameRequest is the body of the name-only profile route
type UpdateNameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// GetProfile handles GET /api/user/profile. The users row is created on first read.
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	profile, err := h.users.Profile(c.UserContext(), *id)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch profile")
	}
	return c.JSON(fiber.Map{"profile": profile})
}

// UpdateProfile handles PUT /api/user/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req services.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}
	req.Name = validation.SanitizeString(req.Name)

	profile, err := h.users.UpdateProfile(c.UserContext(), *id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to update profile")
	}

	if req.Name != "" {
		h.syncDisplayName(c, id.AccessToken, req.Name)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"profile": profile,
		"message": "Profile updated successfully",
	})
}

// UpdateName handles PUT /api/auth/profile, which only changes the display name
func (h *AuthHandler) UpdateName(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	if id.AccessToken == "" {
		return response.Forbidden(c, "Profile cannot be changed while impersonating")
	}

	var req UpdateNameRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	user, err := h.identity.UpdateUser(c.UserContext(), id.AccessToken, supabase.UserAttributes{
		Data: map[string]interface{}{"name": req.Name},
	})
	if err != nil {
		return identityError(c, err, "Failed to update profile")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(*user),
		"message": "Profile updated successfully",
	})
}

// syncDisplayName copies a changed name into the identity account metadata.
// Failures only get logged; the users row is already updated.
func (h *AuthHandler) syncDisplayName(c *fiber.Ctx, accessToken, name string) {
	if accessToken == "" {
		return
	}
	_, err := h.identity.UpdateUser(c.UserContext(), accessToken, supabase.UserAttributes{
		Data: map[string]interface{}{"name": name},
	})
	if err != nil {
		logger.FromContext(c.UserContext()).Warn("failed to sync display name", zap.Error(err))
	}
}
