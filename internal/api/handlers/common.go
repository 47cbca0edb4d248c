package handlers

import (
	"payme-bot/internal/models"
	"payme-bot/internal/service"
	"payme-bot/pkg/middleware"

	"github.com/gofiber/fiber/v2"
)

// Optional profile headers set by the gateway alongside the chat user id.
const (
	usernameHeader  = "X-Chat-Username"
	firstNameHeader = "X-Chat-First-Name"
)

// resolveUser registers the chat user on first contact and rejects
// deactivated users.
func resolveUser(c *fiber.Ctx, users *service.UserService) (*models.User, error) {
	chatID, ok := c.Locals(middleware.LocalsChatID).(int64)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var username, firstName *string
	if v := c.Get(usernameHeader); v != "" {
		username = &v
	}
	if v := c.Get(firstNameHeader); v != "" {
		firstName = &v
	}

	user, err := users.GetOrCreate(c.Context(), chatID, username, firstName)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Failed to resolve user")
	}
	if !user.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "User is deactivated")
	}
	return user, nil
}
