package api

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidatorEnforcesTags(t *testing.T) {
	v := NewValidator()

	type payload struct {
		RecipientID string `validate:"required"`
		Type        string `validate:"omitempty,oneof=text image file"`
	}

	assert.NoError(t, v.Validate(&payload{RecipientID: "bob", Type: "text"}))
	assert.NoError(t, v.Validate(&payload{RecipientID: "bob"}))

	err := v.Validate(&payload{Type: "text"})
	assert.Error(t, err)
	assert.IsType(t, validator.ValidationErrors{}, err)

	assert.Error(t, v.Validate(&payload{RecipientID: "bob", Type: "video"}))
}
