package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/core/ports"
)

const installedKey = "shoutzor.installed"

// NotInstalled only lets requests through while the installer is still open.
func NotInstalled(rt ports.RuntimeConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rt.GetBool(installedKey) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "shoutzor is already installed",
			})
		}
		return c.Next()
	}
}

// Installed rejects requests until the installation has finished.
func Installed(rt ports.RuntimeConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rt.GetBool(installedKey) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "shoutzor is not installed",
				"install": "/api/install/steps",
			})
		}
		return c.Next()
	}
}
