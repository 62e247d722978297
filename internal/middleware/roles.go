package middleware

import (
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// Require rejects admins whose role lacks (resource, action) before the
// handler runs. Event scope is checked later by the service.
func Require(resource permissions.Resource, action permissions.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pc, err := Permissions(c)
		if err != nil {
			return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeUnauthorized, "Admin access required", nil)
		}
		if !pc.Can(resource, action) {
			return utils.ErrorWithCode(c, fiber.StatusForbidden, services.CodeForbidden, "Access denied", nil)
		}
		return c.Next()
	}
}

// RequireSuperadmin guards the admin-account routes.
func RequireSuperadmin(c *fiber.Ctx) error {
	pc, err := Permissions(c)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeUnauthorized, "Admin access required", nil)
	}
	if !pc.IsSuperadmin() {
		return utils.ErrorWithCode(c, fiber.StatusForbidden, services.CodeForbidden, "Superadmin access required", nil)
	}
	return c.Next()
}
