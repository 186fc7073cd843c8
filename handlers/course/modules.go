package course

import (
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// CreateModule handles POST /api/admin/modules
func (h *CourseHandler) CreateModule(c *fiber.Ctx) error {
	var req services.ModuleInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	module, err := h.catalog.CreateModule(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create module")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"module_id": module.ID,
		"module":    module,
	})
}

// UpdateModule handles PUT /api/admin/modules/:id
func (h *CourseHandler) UpdateModule(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	var req services.ModuleInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	module, err := h.catalog.UpdateModule(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Module not found")
	}
	return c.JSON(fiber.Map{"success": true, "module": module})
}

// DeleteModule handles DELETE /api/admin/modules/:id
func (h *CourseHandler) DeleteModule(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid module ID")
	}

	if err := h.catalog.DeleteModule(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete module")
	}
	return c.JSON(fiber.Map{"success": true})
}

// FindModule handles GET /api/admin/modules/find?course_id=&title=
func (h *CourseHandler) FindModule(c *fiber.Ctx) error {
	courseID, err := handlers.QueryID(c, "course_id")
	title := strings.TrimSpace(c.Query("title"))
	if err != nil || courseID == 0 || title == "" {
		return response.BadRequest(c, "course_id and title are required")
	}

	module, err := h.catalog.FindModuleByTitle(c.UserContext(), courseID, title)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find module")
	}
	return c.JSON(fiber.Map{"module": module})
}
