package admin

import (
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/auth"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler handles user management, impersonation and the admin check
type AdminHandler struct {
	users        *services.UserService
	impersonator *auth.Impersonator
	validator    *validation.Validator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *services.UserService, impersonator *auth.Impersonator) *AdminHandler {
	return &AdminHandler{
		users:        users,
		impersonator: impersonator,
		validator:    validation.NewValidator(),
	}
}

// Check handles GET /api/admin/check. Anonymous callers are simply not admins.
func (h *AdminHandler) Check(c *fiber.Ctx) error {
	id, ok := middleware.GetIdentity(c)
	return c.JSON(fiber.Map{"isAdmin": ok && id.IsAdmin})
}

// ListUsers handles GET /api/admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.UserContext())
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch users")
	}
	return c.JSON(fiber.Map{"users": users})
}

// FindUser handles GET /api/admin/users/find?email=
func (h *AdminHandler) FindUser(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return response.BadRequest(c, "Email is required")
	}

	user, err := h.users.FindByEmail(c.UserContext(), email)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find user")
	}
	return c.JSON(fiber.Map{"user": user})
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(c *fiber.Ctx) error {
	var req services.UserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.Email) == "" {
		return response.BadRequest(c, "Email is required")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}
	req.Name = validation.SanitizeString(req.Name)

	user, err := h.users.Create(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create user")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user_id": user.ID,
		"user":    user,
	})
}

// UpdateUser handles PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req services.UserInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}
	req.Name = validation.SanitizeString(req.Name)

	user, err := h.users.Update(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "User not found")
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// DeleteUser handles DELETE /api/admin/users/:id
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	if err := h.users.Delete(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete user")
	}
	return c.JSON(fiber.Map{"success": true})
}
