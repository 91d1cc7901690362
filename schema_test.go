package attrschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldErrors(t *testing.T) {
	errs := FieldErrors{
		{Code: "color", Message: "Color is required"},
		{Code: "weight", Message: "Weight must be at least 0"},
	}

	assert.Equal(t, 2, errs.Len())

	msg, ok := errs.Get("weight")
	assert.True(t, ok)
	assert.Equal(t, "Weight must be at least 0", msg)

	_, ok = errs.Get("size")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{
		"color":  "Color is required",
		"weight": "Weight must be at least 0",
	}, errs.Map())
}

func TestValidationResultValid(t *testing.T) {
	assert.True(t, ValidationResult{Data: AttributesData{"color": "red"}}.Valid())
	assert.False(t, ValidationResult{Errors: FieldErrors{{Code: "color", Message: "x"}}}.Valid())
}
