package auth

import (
	"errors"
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const samePasswordMessage = "New password must be different from the current password"

// ForgotPasswordRequest represents a forgot password request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest carries the recovery token from the emailed link
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// ChangePasswordRequest represents a change password request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ForgotPassword handles POST /api/auth/forgot-password. The answer is the
// same whether or not the email has an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	if err := h.identity.Recover(c.UserContext(), strings.TrimSpace(req.Email), callbackURL(c)); err != nil {
		return identityError(c, err, "Failed to send reset email")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "If the email is registered you will receive a recovery link. The link is valid for 1 hour.",
	})
}

// callbackURL is where the recovery link sends the browser back to
func callbackURL(c *fiber.Ctx) string {
	host := c.Hostname()
	if host == "" {
		host = "localhost:3000"
	}
	scheme := "https"
	if strings.Contains(host, "localhost") {
		scheme = "http"
	}
	return scheme + "://" + host + "/auth/callback"
}

// ResetPassword handles POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	user, err := h.identity.UpdateUser(c.UserContext(), req.Token, supabase.UserAttributes{Password: req.Password})
	if err != nil {
		return passwordError(c, err, "Failed to reset password")
	}

	// The recovery token is not a session; sign in with the new password to get one.
	session, err := h.identity.SignInWithPassword(c.UserContext(), user.Email, req.Password)
	if err != nil {
		logger.FromContext(c.UserContext()).Warn("sign in after password reset failed",
			zap.String("email", user.Email), zap.Error(err))
		h.cookies.Clear(c)
	} else {
		h.cookies.SetSession(c, session.AccessToken, session.RefreshToken)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	if id.AccessToken == "" {
		return response.Forbidden(c, "Password cannot be changed while impersonating")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	session, err := h.identity.SignInWithPassword(c.UserContext(), id.Email, req.CurrentPassword)
	if err != nil {
		if supabase.IsUpstreamClientError(err) {
			return response.BadRequest(c, "Current password is incorrect")
		}
		return handlers.Upstream(c, err, "Failed to change password")
	}

	if _, err := h.identity.UpdateUser(c.UserContext(), session.AccessToken, supabase.UserAttributes{Password: req.NewPassword}); err != nil {
		return passwordError(c, err, "Failed to change password")
	}

	h.cookies.SetSession(c, session.AccessToken, session.RefreshToken)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

func passwordError(c *fiber.Ctx, err error, fallback string) error {
	var apiErr *supabase.Error
	if errors.As(err, &apiErr) && apiErr.Code == "same_password" {
		return response.BadRequest(c, samePasswordMessage)
	}
	return identityError(c, err, fallback)
}
