package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"go-automation/internal/config"
	"go-automation/internal/features/audit"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ActorMiddleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(audit.Actor(c.UserContext()))
	})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{name: "header set", header: "ops", want: "ops"},
		{name: "blank header", header: "  ", want: "system"},
		{name: "no header", want: "system"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set(ActorHeader, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	app := fiber.New()
	app.Use(CORSMiddleware(&config.Config{CORSOrigins: "http://localhost:3000"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}
