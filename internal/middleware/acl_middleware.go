package middleware

import (
	"github.com/gofiber/fiber/v2"

	"ptmanager_backend/internal/model"
	"ptmanager_backend/pkg/database"
	"ptmanager_backend/pkg/utils/jwt"
)

// CheckClientAccess loads the client named by the :id param into
// Locals("client"). Staff reach any client of their tenant, a client
// account only its own record.
func CheckClientAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := c.Locals("user").(*jwt.Claims)
		clientID, err := c.ParamsInt("id")
		if err != nil || clientID <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid client ID",
			})
		}

		if claims.Role == jwt.RoleClient && claims.ClientID != uint(clientID) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You don't have permission to access this client",
			})
		}

		var client model.Client
		if err := database.GetDB().Where("id = ? AND tenant_id = ?", clientID, claims.TenantID).
			First(&client).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Client not found",
			})
		}

		if claims.Role == jwt.RoleClient && client.IsArchived && client.GetArchiveSettings().BlockAppAccess {
			msg := client.GetArchiveSettings().CustomMessage
			if msg == "" {
				msg = "Il tuo accesso all'app è stato sospeso"
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":    msg,
				"archived": true,
			})
		}

		c.Locals("client", &client)
		return c.Next()
	}
}
