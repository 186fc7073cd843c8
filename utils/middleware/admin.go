package middleware

import (
	"strings"

	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AdminAuditLog writes one audit line for every admin write. It runs behind
// RequireAdmin so the identity is always present.
func AdminAuditLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			return c.Next()
		}

		err := c.Next()

		admin := ""
		impersonated := false
		if id, ok := GetIdentity(c); ok {
			admin = id.Email
			impersonated = id.Impersonated
		}
		logger.FromContext(c.UserContext()).Info("admin action",
			zap.String("action", c.Method()),
			zap.String("resource", adminResource(c.Path())),
			zap.String("resource_id", c.Params("id")),
			zap.String("admin", admin),
			zap.Bool("impersonated", impersonated),
			zap.Int("status", c.Response().StatusCode()),
		)
		return err
	}
}

// adminResource returns the first path segment after /api/admin/
func adminResource(path string) string {
	rest := strings.TrimPrefix(path, "/api/admin/")
	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[:i]
	}
	return rest
}
