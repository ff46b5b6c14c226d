package shared

import (
	"github.com/go-playground/validator/v10"

	"github.com/costdesk/costdesk/internal/costhead"
)

// NewValidator returns a validator with the costdesk custom tags registered.
//
//	costhead: value must be one of the canonical raw cost heads.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("costhead", func(fl validator.FieldLevel) bool {
		return costhead.Valid(fl.Field().String())
	})
	return v
}
