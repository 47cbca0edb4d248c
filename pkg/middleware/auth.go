package middleware

import (
	"strconv"

	"payme-bot/pkg/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	// ChatUserHeader carries the chat user id set by the trusted gateway.
	ChatUserHeader = "X-Chat-User-ID"

	// Locals keys populated for downstream handlers.
	LocalsChatID  = "chat_id"
	LocalsIsAdmin = "is_admin"
)

// AllowList authorizes requests by the gateway-provided chat user id.
// Admins always pass. When an allow-list is configured, only listed ids
// pass; otherwise any id is accepted and per-user activation is left to
// the user store.
func AllowList(cfg config.AccessConfig, logger *zap.Logger) fiber.Handler {
	allowed := toSet(cfg.AllowedChatIDs)
	admins := toSet(cfg.AdminChatIDs)

	return func(c *fiber.Ctx) error {
		raw := c.Get(ChatUserHeader)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing " + ChatUserHeader + " header",
			})
		}

		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid chat user id",
			})
		}

		isAdmin := admins[chatID]
		if !isAdmin && len(allowed) > 0 && !allowed[chatID] {
			logger.Warn("Rejected chat user outside allow-list", zap.Int64("chat_id", chatID))
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "access denied",
			})
		}

		c.Locals(LocalsChatID, chatID)
		c.Locals(LocalsIsAdmin, isAdmin)
		return c.Next()
	}
}

// AdminOnly guards management endpoints. Must run after AllowList.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isAdmin, _ := c.Locals(LocalsIsAdmin).(bool)
		if !isAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin access required",
			})
		}
		return c.Next()
	}
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
