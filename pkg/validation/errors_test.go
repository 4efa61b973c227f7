package validation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "missing field",
			err:  Missing("action", "a1", "templateId"),
			want: "invalid action 'a1': field 'templateId': is required",
		},
		{
			name: "no id",
			err:  Invalid("condition", "", "operator", "unknown operator %q", "like"),
			want: `invalid condition: field 'operator': unknown operator "like"`,
		},
		{
			name: "bare",
			err:  &ValidationError{},
			want: "invalid definition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWithinKeepsInnerField(t *testing.T) {
	inner := Missing("action", "a1", "tagName")
	err := Within("rule", "r1", fmt.Errorf("true actions: %w", inner))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "rule", ve.Subject)
	assert.Equal(t, "r1", ve.ID)
	assert.Equal(t, "tagName", ve.Field)
	assert.True(t, IsValidation(err))
}

func TestWithinPassesThroughOtherErrors(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, Within("rule", "r1", plain))
	assert.Nil(t, Within("rule", "r1", nil))
	assert.False(t, IsValidation(plain))
}

func TestWithinMessage(t *testing.T) {
	err := Within("rule", "r1", Missing("action", "a1", "tagName"))
	assert.Equal(t, "invalid rule 'r1': field 'tagName': action 'a1': is required", err.Error())
}
