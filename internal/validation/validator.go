// Package validation wraps go-playground/validator and converts its
// failures into apperrors validation errors keyed by form field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"bookreview/internal/apperrors"
	"bookreview/internal/models"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]+$`)

// Validator validates request and form structs.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the custom tags used by the forms.
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// Registration only fails on a duplicate tag name, which is a programming error.
	mustRegister(v, "category", func(fl validator.FieldLevel) bool {
		return models.ValidCategory(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate validates s and returns an *apperrors.Error on failure.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		fields := make(map[string]string, len(validationErrs))
		for _, e := range validationErrs {
			fields[e.Field()] = friendlyMessage(e)
		}
		return apperrors.Validation("validation failed", fields)
	}
	return nil
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", e.Param())
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
	case "gte":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "lte":
		return "Ensure this value is less than or equal to " + e.Param() + "."
	case "eqfield":
		return "The two password fields didn't match."
	case "category":
		return "Select a valid choice."
	case "username":
		return "Enter a valid username. Letters, digits and @/./+/-/_ only."
	default:
		return "Enter a valid value."
	}
}
