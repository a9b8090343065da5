package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// personNamePattern accepts Latin letters with Vietnamese diacritics plus
// spaces. Registered once here; every DTO carrying a human name uses the
// person_name tag instead of re-declaring its own pattern.
var personNamePattern = regexp.MustCompile(`^[a-zA-ZÀ-ỹ\s]+$`)

// Validator wraps go-playground validation with the service's custom rules.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with all custom rules registered.
func New() *Validator {
	validate := validator.New()

	v := &Validator{validate: validate}
	v.registerRules()

	return v
}

// Validate validates a struct and returns ValidationErrors, or nil.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("person_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		if name == "" {
			return false
		}
		return personNamePattern.MatchString(name)
	})

	// Exam title validation (1-255 characters after trimming)
	v.validate.RegisterValidation("exam_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 255
	})

	// Question points validation (1-100)
	v.validate.RegisterValidation("points_range", func(fl validator.FieldLevel) bool {
		points := fl.Field().Int()
		return points >= 1 && points <= 100
	})

	// Exam duration validation (1-480 minutes)
	v.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 1 && duration <= 480
	})
}
