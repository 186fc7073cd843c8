package handlers

import (
	"errors"
	"net/http"

	"github.com/cct-academy/course-portal/services"
	"github.com/cct-academy/course-portal/services/supabase"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Upstream maps a service error to a response. Misses become 404, answers
// the hosted service rejected keep their 4xx status, and everything else is a
// 502 so callers can tell our bugs from theirs.
func Upstream(c *fiber.Ctx, err error, message string) error {
	var apiErr *supabase.Error
	var incomplete *services.IncompleteCourseError

	switch {
	case errors.Is(err, services.ErrNotFound):
		return response.NotFound(c, message)
	case errors.Is(err, services.ErrForbidden):
		return response.Forbidden(c, "")
	case errors.As(err, &incomplete):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "Course not completed",
			"completion": incomplete.Completion,
		})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrNoLessons):
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, message, "", err.Error())
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		logger.FromContext(c.UserContext()).Warn("upstream request failed",
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		details := apiErr.Details
		if details == "" {
			details = apiErr.Message
		}
		return c.Status(status).JSON(response.ErrorBody{Error: message, Hint: apiErr.Hint, Details: details})
	default:
		logger.FromContext(c.UserContext()).Error("request failed", zap.Error(err))
		return response.ErrorWithDetails(c, fiber.StatusBadGateway, message, "", err.Error())
	}
}
