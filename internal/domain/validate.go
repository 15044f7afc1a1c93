package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "github.com/deptforge/agent-departments/pkg/util/errorutil"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("department_category", func(fl validator.FieldLevel) bool {
		return DepartmentCategory(fl.Field().String()).Valid()
	})
	return v
}

// ValidateStruct runs struct-tag validation on v and converts failures into a
// ValidationError carrying one detail entry per offending field.
func ValidateStruct(message string, v any) error {
	return structError(message, validate.Struct(v))
}

// Validate checks the persona fields that must be present before a prompt can
// be synthesized.
func (p AgentPersonality) Validate() error {
	return structError("invalid agent personality", validate.Struct(p))
}

func structError(message string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(message, nil)
	}
	details := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return apperrors.NewValidationError(message, details)
}
