package handlers

import (
	"context"
	"time"

	"github.com/cct-academy/course-portal/config"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is anything that can tell whether the hosted database answers
type Pinger interface {
	Ping(ctx context.Context) error
}

// HandleCheckHealth reports whether the service is configured and the
// database is reachable.
func HandleCheckHealth(cfg *config.Config, db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		status, database := "ok", "ok"
		code := fiber.StatusOK
		if err := db.Ping(ctx); err != nil {
			logger.FromContext(c.UserContext()).Warn("health check ping failed", zap.Error(err))
			status, database = "degraded", "unreachable"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  database,
			"environment": fiber.Map{
				"name":         cfg.Env,
				"supabase_url": cfg.Supabase.URL != "",
				"supabase_key": cfg.Supabase.AnonKey != "",
			},
		})
	}
}
