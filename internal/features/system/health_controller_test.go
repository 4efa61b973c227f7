package system

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Pinger
		code   int
		status string
	}{
		{
			name:   "all up",
			checks: map[string]Pinger{"mongodb": func(context.Context) error { return nil }},
			code:   fiber.StatusOK,
			status: "ok",
		},
		{
			name: "one down",
			checks: map[string]Pinger{
				"mongodb": func(context.Context) error { return nil },
				"redis":   func(context.Context) error { return errors.New("connection refused") },
			},
			code:   fiber.StatusServiceUnavailable,
			status: "degraded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthController(tt.checks).Health)

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.status, body["status"])
			assert.Len(t, body["dependencies"], len(tt.checks))
		})
	}
}
