package auth

import (
	"context"
	"errors"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/services/supabase"
	authutil "github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IdentityService is the part of the hosted identity service the auth routes use
type IdentityService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password, name string) (*supabase.SignUpResult, error)
	UpdateUser(ctx context.Context, accessToken string, attrs supabase.UserAttributes) (*supabase.User, error)
	Recover(ctx context.Context, email, redirectTo string) error
	Logout(ctx context.Context, accessToken string) error
}

// AuthHandler handles session, registration and password routes
type AuthHandler struct {
	identity             IdentityService
	users                *services.UserService
	auth                 *middleware.AuthMiddleware
	cookies              authutil.Cookies
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity IdentityService, users *services.UserService, auth *middleware.AuthMiddleware, cookies authutil.Cookies, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		identity:             identity,
		users:                users,
		auth:                 auth,
		cookies:              cookies,
		bruteForceProtection: bruteForceProtection,
		validator:            validation.NewValidator(),
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=1,max=255"`
}

// UserResponse is the public view of a signed-in account
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func userResponse(u supabase.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Name: u.DisplayName()}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	req.Name = validation.SanitizeString(req.Name)

	result, err := h.identity.SignUp(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return identityError(c, err, "Registration failed")
	}

	// The account exists at this point; a missing profile row is created
	// again on the first profile read.
	if _, err := h.users.EnsureProfile(c.UserContext(), req.Email, req.Name); err != nil {
		logger.FromContext(c.UserContext()).Warn("failed to create user profile",
			zap.String("email", req.Email), zap.Error(err))
	}

	if result.Session != nil {
		h.cookies.SetSession(c, result.Session.AccessToken, result.Session.RefreshToken)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":           true,
		"message":           "Registration successful. Please check your email to confirm.",
		"user":              userResponse(result.User),
		"needsConfirmation": result.Session == nil,
	})
}

// identityError passes the identity service's own message through for
// rejected requests and reports anything else as an upstream failure.
func identityError(c *fiber.Ctx, err error, fallback string) error {
	var apiErr *supabase.Error
	if errors.As(err, &apiErr) && supabase.IsUpstreamClientError(err) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return response.BadRequest(c, msg)
	}
	return handlers.Upstream(c, err, fallback)
}
