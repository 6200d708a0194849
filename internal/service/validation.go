package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// emailShape is local-part "@" domain with at least one dot, no whitespace.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return v
}

// registerInput carries the rules Register enforces, in reporting order:
// presence of every field, password length, then email shape.
type registerInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,emailshape"`
	Password string `validate:"required,min=8"`
}

func registerFailure(errs validator.ValidationErrors) string {
	for _, fe := range errs {
		if fe.Tag() == "required" {
			return "Please provide name, email and password"
		}
	}
	for _, fe := range errs {
		if fe.Field() == "Password" {
			return "Password must be at least 8 characters"
		}
	}
	return "Invalid email format"
}
