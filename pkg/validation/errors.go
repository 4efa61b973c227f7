package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a malformed condition, action, rule or step definition.
// Field carries the wire name of the offending field (e.g. "templateId").
type ValidationError struct {
	Subject string // "condition", "action", "rule", "step", "campaign"
	ID      string
	Field   string
	Reason  string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	if e.Subject != "" {
		b.WriteString(e.Subject)
	} else {
		b.WriteString("definition")
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " '%s'", e.ID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field '%s'", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Missing builds the error for an absent required field.
func Missing(subject, id, field string) *ValidationError {
	return &ValidationError{Subject: subject, ID: id, Field: field, Reason: "is required"}
}

// Invalid builds the error for a present but unusable field.
func Invalid(subject, id, field, format string, args ...any) *ValidationError {
	return &ValidationError{Subject: subject, ID: id, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Within re-scopes a nested error under a parent definition, keeping the
// innermost field so callers can still see what was missing.
func Within(subject, id string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	reason := ve.Reason
	if ve.Subject != "" && (ve.Subject != subject || ve.ID != "") {
		scope := ve.Subject
		if ve.ID != "" {
			scope += " '" + ve.ID + "'"
		}
		reason = scope + ": " + reason
	}
	return &ValidationError{Subject: subject, ID: id, Field: ve.Field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
