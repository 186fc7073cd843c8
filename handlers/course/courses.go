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

// CourseHandler handles catalog requests: courses, modules and lessons
type CourseHandler struct {
	catalog   *services.CatalogService
	validator *validation.Validator
}

// NewCourseHandler creates a new course handler
func NewCourseHandler(catalog *services.CatalogService) *CourseHandler {
	return &CourseHandler{
		catalog:   catalog,
		validator: validation.NewValidator(),
	}
}

func isAdmin(c *fiber.Ctx) bool {
	id, ok := middleware.GetIdentity(c)
	return ok && id.IsAdmin
}

// ListCourses handles GET /api/courses. Admins also see unpublished courses.
func (h *CourseHandler) ListCourses(c *fiber.Ctx) error {
	courses, err := h.catalog.ListCourses(c.UserContext(), isAdmin(c))
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch courses")
	}
	return c.JSON(fiber.Map{"courses": courses})
}

// GetCourse handles GET /api/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	detail, err := h.catalog.CourseDetail(c.UserContext(), id)
	if err != nil {
		return handlers.Upstream(c, err, "Course not found")
	}
	if !detail.Course.IsPublished && !isAdmin(c) {
		return response.NotFound(c, "Course not found")
	}
	return c.JSON(detail)
}

// CreateCourse handles POST /api/admin/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	course, err := h.catalog.CreateCourse(c.UserContext(), req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to create course")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":   true,
		"course_id": course.ID,
		"course":    course,
	})
}

// UpdateCourse handles PUT /api/admin/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req services.CourseInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Title = validation.SanitizeString(req.Title)
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, validation.FormatValidationErrors(err))
	}

	course, err := h.catalog.UpdateCourse(c.UserContext(), id, req, middleware.CallerToken(c)...)
	if err != nil {
		return handlers.Upstream(c, err, "Course not found")
	}
	return c.JSON(fiber.Map{"success": true, "course": course})
}

// DeleteCourse handles DELETE /api/admin/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	id, err := handlers.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.catalog.DeleteCourse(c.UserContext(), id, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to delete course")
	}
	return c.JSON(fiber.Map{"success": true})
}

// FindCourse handles GET /api/admin/courses/find?title=
func (h *CourseHandler) FindCourse(c *fiber.Ctx) error {
	title := strings.TrimSpace(c.Query("title"))
	if title == "" {
		return response.BadRequest(c, "Title is required")
	}

	course, err := h.catalog.FindCourseByTitle(c.UserContext(), title)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to find course")
	}
	return c.JSON(fiber.Map{"course": course})
}
