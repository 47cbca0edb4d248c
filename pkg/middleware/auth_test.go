package middleware

import (
	"net/http/httptest"
	"testing"

	"payme-bot/pkg/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(cfg config.AccessConfig) *fiber.App {
	app := fiber.New()
	app.Use(AllowList(cfg, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/admin", AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func request(t *testing.T, app *fiber.App, path, chatID string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if chatID != "" {
		req.Header.Set(ChatUserHeader, chatID)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAllowListMissingHeader(t *testing.T) {
	app := newTestApp(config.AccessConfig{})
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/", ""))
}

func TestAllowListInvalidChatID(t *testing.T) {
	app := newTestApp(config.AccessConfig{})
	assert.Equal(t, fiber.StatusUnauthorized, request(t, app, "/", "not-a-number"))
}

func TestAllowListOpenWhenUnconfigured(t *testing.T) {
	app := newTestApp(config.AccessConfig{})
	assert.Equal(t, fiber.StatusOK, request(t, app, "/", "100"))
}

func TestAllowListRestrictsToListedIDs(t *testing.T) {
	app := newTestApp(config.AccessConfig{AllowedChatIDs: []int64{100, 200}})
	assert.Equal(t, fiber.StatusOK, request(t, app, "/", "100"))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/", "300"))
}

func TestAllowListAdminBypassesList(t *testing.T) {
	app := newTestApp(config.AccessConfig{
		AdminChatIDs:   []int64{1},
		AllowedChatIDs: []int64{100},
	})
	assert.Equal(t, fiber.StatusOK, request(t, app, "/", "1"))
}

func TestAdminOnly(t *testing.T) {
	app := newTestApp(config.AccessConfig{AdminChatIDs: []int64{1}})
	assert.Equal(t, fiber.StatusOK, request(t, app, "/admin", "1"))
	assert.Equal(t, fiber.StatusForbidden, request(t, app, "/admin", "2"))
}
