package api

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"go-automation/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type triggerBody struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Trigger     string `json:"trigger" validate:"required"`
}

func TestBind(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var body triggerBody
		if err := Bind(c, &body); err != nil {
			return Error(c, err)
		}
		return c.SendString(body.RecipientID + ":" + body.Trigger)
	})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantBody string
	}{
		{"valid", `{"recipientId":"r1","trigger":"signup"}`, fiber.StatusOK, "r1:signup"},
		{"missing field", `{"recipientId":"r1"}`, fiber.StatusBadRequest, "field 'trigger'"},
		{"malformed", `{"recipientId":`, fiber.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)
			b, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(b), tt.wantBody)
		})
	}
}

func TestValidateUsesWireNames(t *testing.T) {
	err := Validate(triggerBody{Trigger: "signup"})
	var ve *validation.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "recipientId", ve.Field)
	assert.Equal(t, "is required", ve.Reason)
}
