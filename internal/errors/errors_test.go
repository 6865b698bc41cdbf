package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidMatchesSentinelAndClass(t *testing.T) {
	err := fmt.Errorf("place order: %w", Invalid("credit_amount", ErrInsufficientCredits))

	assert.True(t, IsValidationError(err))
	assert.True(t, IsInsufficientCredits(err))
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "credit_amount")
}

func TestNewValidationErrorHasNoCause(t *testing.T) {
	err := NewValidationError("display_name", "must be non-empty")

	assert.True(t, IsValidationError(err))
	assert.Nil(t, errors.Unwrap(err))
	assert.Equal(t, "validation error on field 'display_name': must be non-empty", err.Error())
}

func TestStoreErrorUnwraps(t *testing.T) {
	err := NewStoreError("insert audit", ErrAccountNotFound)

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidationError(err))
	assert.Equal(t, "store error during 'insert audit': account not found", err.Error())
}

func TestIsNotFoundCoversOrders(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("buy: %w", ErrOrderNotFound)))
	assert.True(t, IsSessionClosed(fmt.Errorf("tick: %w", ErrSessionClosed)))
	assert.True(t, IsNoAccount(Invalid("account", ErrNoAccount)))
}

func TestAsValidationErrorExposesField(t *testing.T) {
	vErr, ok := AsValidationError(fmt.Errorf("wrapped: %w", Invalid("price_per_credit", ErrInvalidPrice)))
	assert.True(t, ok)
	assert.Equal(t, "price_per_credit", vErr.Field)

	_, ok = AsValidationError(ErrOrderNotFound)
	assert.False(t, ok)
}
