package services

import (
	"errors"
	"unicode/utf8"

	"github.com/dmitrijs2005/thyroscope/internal/client/client"
	"github.com/go-playground/validator/v10"
)

const minPasswordLength = 8

// SignupForm is what the signup screen collects.
type SignupForm struct {
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,strongpassword"`
	ConfirmPassword string `validate:"eqfield=Password"`
	Gender          string
	Phone           string
	Image           *client.Upload
}

type passwordChange struct {
	OldPassword     string `validate:"required"`
	NewPassword     string `validate:"required"`
	ConfirmPassword string `validate:"eqfield=NewPassword"`
}

type credentials struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// StrongPassword reports whether p has at least eight characters and
// contains a lowercase letter, an uppercase letter, a digit and a character
// outside [A-Za-z0-9_].
func StrongPassword(p string) bool {
	if utf8.RuneCountInString(p) < minPasswordLength {
		return false
	}

	var lower, upper, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r == '_':
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	return v
}

var fieldMessages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email address",
	"strongpassword": "must be at least 8 characters long and include uppercase, lowercase, number, and special character",
	"eqfield":        "does not match",
}

// validate runs v over s and converts failures into a *ValidationError.
func validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
