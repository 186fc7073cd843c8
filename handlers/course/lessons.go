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

// CreateLesson handles POST /api/admin/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	var req services.LessonInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	lesson, err := h.catalog.CreateLesson(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create lesson")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"lesson_id": lesson.ID,
		"lesson":    lesson,
	})
}

// UpdateLesson handles PUT /api/admin/lessons/:id
func (h *CourseHandler) UpdateLesson(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req services.LessonInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	lesson, err := h.catalog.UpdateLesson(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Lesson not found")
	}
	return c.JSON(fiber.Map{"success": true, "lesson": lesson})
}

// DeleteLesson handles DELETE /api/admin/lessons/:id
func (h *CourseHandler) DeleteLesson(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	if err := h.catalog.DeleteLesson(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete lesson")
	}
	return c.JSON(fiber.Map{"success": true})
}

// FindLesson handles GET /api/admin/lessons/find?module_id=&title=
func (h *CourseHandler) FindLesson(c *fiber.Ctx) error {
	moduleID, err := handlers.QueryID(c, "module_id")
	title := strings.TrimSpace(c.Query("title"))
	if err != nil || moduleID == 0 || title == "" {
		return response.BadRequest(c, "module_id and title are required")
	}

	lesson, err := h.catalog.FindLessonByTitle(c.UserContext(), moduleID, title)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find lesson")
	}
	return c.JSON(fiber.Map{"lesson": lesson})
}
