package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMissingFields(t *testing.T) {
	err := NewMissingFields("seekerId", "timeSlot")

	assert.Equal(t, ErrValidation, err.Code)
	assert.Equal(t, []string{"seekerId", "timeSlot"}, err.Fields)
	assert.Equal(t, "Missing required fields: seekerId, timeSlot", err.Error())
}

func TestSlotTakenMatchesSentinel(t *testing.T) {
	cause := stderrors.New("duplicate key value violates unique constraint")
	err := fmt.Errorf("failed to create appointment: %w", SlotTaken(cause))

	assert.True(t, stderrors.Is(err, ErrSlotTaken))
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, ErrConflict, CodeOf(err))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("boom")))
}

func TestInternalHidesCause(t *testing.T) {
	err := NewInternal(stderrors.New("dial tcp 10.0.0.3:5432: connection refused"))

	assert.Equal(t, GenericMessage, err.Message)
	assert.Contains(t, err.Error(), "connection refused")
}
