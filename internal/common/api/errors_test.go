package api

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go-automation/internal/lock"
	"go-automation/pkg/action"
	"go-automation/pkg/graph"
	"go-automation/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: fmt.Errorf("save: %w", validation.Missing("rule", "r", "name")), want: fiber.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("rule r1: %w", ErrNotFound), want: fiber.StatusNotFound},
		{name: "locked", err: lock.ErrLockNotAcquired, want: fiber.StatusConflict},
		{name: "conflict", err: ErrConflict, want: fiber.StatusConflict},
		{name: "runaway", err: &graph.RunawayGraphError{CampaignID: "c", StepID: "a", Steps: 10}, want: fiber.StatusUnprocessableEntity},
		{name: "terminal", err: action.ErrTerminalState, want: fiber.StatusUnprocessableEntity},
		{name: "other", err: errors.New("boom"), want: fiber.StatusInternalServerError},
		{name: "deadline", err: context.DeadlineExceeded, want: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
