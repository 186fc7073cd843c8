package progress

import (
	"net/url"
	"strings"

	"github.com/cct-academy/course-portal/handlers"
	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/utils/middleware"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/cct-academy/course-portal/utils/validation"
	"github.com/gofiber/fiber/v2"
)

// ProgressHandler handles lesson completion tracking
type ProgressHandler struct {
	progress  *services.ProgressService
	validator *validation.Validator
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		progress:  progress,
		validator: validation.NewValidator(),
	}
}

// GetProgress handles GET /api/progress/:email/:courseId
func (h *ProgressHandler) GetProgress(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil || !validation.ValidateEmail(strings.TrimSpace(email)) {
		return response.BadRequest(c, "Invalid email")
	}
	courseID, err := handlers.ParamID(c, "courseId")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	progress, err := h.progress.CourseProgress(c.UserContext(), email, courseID)
	if err != nil {
		return handlers.Upstream(c, err, "Failed to fetch progress")
	}
	return c.JSON(fiber.Map{"progress": progress})
}

// Complete handles POST /api/progress/complete
func (h *ProgressHandler) Complete(c *fiber.Ctx) error {
	req, ok, err := h.bind(c)
	if !ok {
		return err
	}
	if err := h.progress.Complete(c.UserContext(), req, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to save progress")
	}
	return c.JSON(fiber.Map{"success": true})
}

// Uncomplete handles POST /api/progress/uncomplete
func (h *ProgressHandler) Uncomplete(c *fiber.Ctx) error {
	req, ok, err := h.bind(c)
	if !ok {
		return err
	}
	if err := h.progress.Uncomplete(c.UserContext(), req, middleware.CallerToken(c)...); err != nil {
		return handlers.Upstream(c, err, "Failed to update progress")
	}
	return c.JSON(fiber.Map{"success": true})
}

// bind reads the progress body. The email defaults to the caller's own and
// only admins may write someone else's progress. When ok is false the
// response has been written and err is what the handler returns.
func (h *ProgressHandler) bind(c *fiber.Ctx) (services.ProgressInput, bool, error) {
	var req services.ProgressInput
	id, signedIn := middleware.GetIdentity(c)
	if !signedIn {
		return req, false, response.Unauthorized(c, "")
	}

	if err := c.BodyParser(&req); err != nil {
		return req, false, response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return req, false, response.ErrorWithDetails(c, fiber.StatusBadRequest, "Missing required fields", "",
			validation.FormatValidationErrors(err))
	}

	if strings.TrimSpace(req.UserEmail) == "" {
		req.UserEmail = id.Email
	}
	if !strings.EqualFold(strings.TrimSpace(req.UserEmail), id.Email) && !id.IsAdmin {
		return req, false, response.Forbidden(c, "Cannot change another user's progress")
	}
	return req, true, nil
}
