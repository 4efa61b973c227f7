package api

import (
	"errors"
	"reflect"
	"strings"

	"go-automation/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Bind parses the request body into dst and checks its validate tags.
// Failures are ValidationErrors naming the offending field.
func Bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return &validation.ValidationError{Subject: "request", Reason: "invalid request body: " + err.Error()}
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "failed '" + fe.Tag() + "'"
		if fe.Tag() == "required" {
			reason = "is required"
		}
		return &validation.ValidationError{Subject: "request", Field: fe.Field(), Reason: reason}
	}
	return err
}
