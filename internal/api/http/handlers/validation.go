package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/securehire-auth/internal/auth"
	apperrors "github.com/spec-kit/securehire-auth/pkg/util/errorutil"
)

var validate = newValidator()

// newValidator registers bcryptlen, a byte-length bound for passwords; the
// builtin max tag counts runes.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}

// bindJSON parses the body into dst and runs struct validation. Failures
// become VALIDATION_FAILED with the offending fields and their tags.
func bindJSON(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		details := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			details[lowerFirst(fe.Field())] = fe.Tag()
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
