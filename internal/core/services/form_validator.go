package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shoutzor/backend/internal/domain"
)

// FormValidator checks loose string inputs against validator tag rules and
// turns failures into per-field messages suitable for a form.
type FormValidator struct {
	validate *validator.Validate
}

func NewFormValidator() *FormValidator {
	return &FormValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateFields runs rules[name] against values[name] for every name in
// order. A field only reports its first failing rule.
func (f *FormValidator) ValidateFields(order []string, values map[string]string, rules map[string]string) []domain.FieldError {
	var out []domain.FieldError
	for _, name := range order {
		rule, ok := rules[name]
		if !ok || rule == "" {
			continue
		}
		if msg, failed := f.Check(name, values[name], rule); failed {
			out = append(out, domain.FieldError{Field: name, Message: msg})
		}
	}
	return out
}

// Check validates a single value and returns the message of the first
// failing rule.
func (f *FormValidator) Check(name, value, rule string) (string, bool) {
	err := f.validate.Var(value, rule)
	if err == nil {
		return "", false
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fieldMessage(name, verrs[0]), true
	}
	return fmt.Sprintf("The %s field is invalid.", name), true
}

func fieldMessage(name string, fe validator.FieldError) string {
	label := strings.ReplaceAll(name, "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", label)
	case "numeric":
		return fmt.Sprintf("The %s must be a number.", label)
	case "number":
		return fmt.Sprintf("The %s must be an integer.", label)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", label)
	case "min":
		return fmt.Sprintf("The %s must be at least %s.", label, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s.", label, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", label)
}
