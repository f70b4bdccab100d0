package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Remote("list", "failed to fetch patients", cause)

	assert.Equal(t, "failed to fetch patients: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFound("get", "failed to fetch patient", nil))

	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRemote(err))
	assert.Equal(t, Kind(0), KindOf(stderrors.New("plain")))
}

func TestValidationFields(t *testing.T) {
	err := Validation(FieldErrors{"email": "invalid email", "cpf": "invalid CPF"})

	assert.True(t, IsValidation(err))
	assert.Equal(t, "validation failed: cpf: invalid CPF; email: invalid email", err.Error())
	assert.Equal(t, "invalid CPF", FieldsOf(err)["cpf"])
}

func TestStale(t *testing.T) {
	err := Stale("update", 42)
	assert.True(t, IsStale(err))
	assert.Contains(t, err.Error(), "42")
	assert.Equal(t, "stale_view", KindStale.String())
}
