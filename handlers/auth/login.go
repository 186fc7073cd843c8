package auth

import (
	"strings"

	authutil "github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LoginRequest represents a user login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	session, err := h.identity.SignInWithPassword(c.UserContext(), email, req.Password)
	if err != nil {
		h.bruteForceProtection.RecordFailedAttempt(c, email)
		return identityError(c, err, "Login failed")
	}

	h.bruteForceProtection.RecordSuccessfulAttempt(c)
	h.cookies.SetSession(c, session.AccessToken, session.RefreshToken)

	logger.FromContext(c.UserContext()).Info("user signed in", zap.String("email", email))

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(session.User),
	})
}

// Logout handles POST /api/auth/logout. The cookies are cleared even when
// revoking the session upstream fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	accessToken := c.Cookies(authutil.AccessTokenCookie)
	if accessToken != "" {
		if err := h.identity.Logout(c.UserContext(), accessToken); err != nil {
			logger.FromContext(c.UserContext()).Debug("upstream logout failed", zap.Error(err))
		}
	}

	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"success": true})
}
