package serverutils

import (
	"crypto/subtle"
	"os"

	"github.com/gofiber/fiber/v2"
)

// SharedSecretMiddleware guards the webhook and ops groups. The gateway and
// CRM are configured with the same token; there are no per-user identities.
func SharedSecretMiddleware(ctx *fiber.Ctx) error {
	secret := os.Getenv("API_SHARED_SECRET")
	if secret == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Server secret not configured"})
	}

	token := ctx.Get("X-Api-Token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	return ctx.Next()
}
