package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Body string `validate:"required,max=5"`
	Bio  string `validate:"max=3"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(sample{Body: "", Bio: "toolong"})
	msg := FormatValidationError(err)

	assert.Contains(t, msg, "Body must not be empty")
	assert.Contains(t, msg, "Bio must be at most 3 characters")
}

func TestFormatValidationError_PlainError(t *testing.T) {
	assert.Equal(t, "EOF", FormatValidationError(errors.New("EOF")))
}
