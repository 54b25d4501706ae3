package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeNotFound, "User not found")
		assert.Equal(t, "NOT_FOUND: User not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "Database error")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "amount", "reason": "mismatch"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"DuplicateActiveSession", DuplicateActiveSession, ErrCodeDuplicateActiveSession},
		{"NoActiveSession", NoActiveSession, ErrCodeNoActiveSession},
		{"SessionNotFound", SessionNotFound, ErrCodeSessionNotFound},
		{"AttemptNotFound", AttemptNotFound, ErrCodeAttemptNotFound},
		{"DuplicateAttempt", DuplicateAttempt, ErrCodeDuplicateAttempt},
		{"QuotaExhausted", QuotaExhausted, ErrCodeQuotaExhausted},
		{"FreeAttemptAlreadyUsed", FreeAttemptAlreadyUsed, ErrCodeFreeAttemptUsed},
		{"PaymentNotFound", PaymentNotFound, ErrCodePaymentNotFound},
		{"PaymentAlreadyConsumed", PaymentAlreadyConsumed, ErrCodePaymentAlreadyConsumed},
		{"PaymentExpired", PaymentExpired, ErrCodePaymentExpired},
		{"RateLimitExceeded", RateLimitExceeded, ErrCodeRateLimitExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedCode, tt.constructor().Code)
		})
	}

	t.Run("PaymentNotConfirmed carries status", func(t *testing.T) {
		err := PaymentNotConfirmed("pending")
		assert.Equal(t, ErrCodePaymentNotConfirmed, err.Code)
		assert.Contains(t, err.Error(), "pending")
	})

	t.Run("AmountMismatch carries both amounts", func(t *testing.T) {
		err := AmountMismatch("10.00", "9.99")
		assert.Equal(t, ErrCodeAmountMismatch, err.Code)
		assert.Equal(t, map[string]string{"expected": "10.00", "got": "9.99"}, err.Details)
	})
}

func TestErrorInspection(t *testing.T) {
	t.Run("IsAppError", func(t *testing.T) {
		assert.True(t, IsAppError(QuotaExhausted()))
		assert.False(t, IsAppError(errors.New("plain")))
	})

	t.Run("AsAppError unwraps", func(t *testing.T) {
		wrapped := fmt.Errorf("handler: %w", DuplicateAttempt())
		appErr, ok := AsAppError(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrCodeDuplicateAttempt, appErr.Code)
	})

	t.Run("GetCode on plain error is internal", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("plain")))
	})

	t.Run("HasCode matches wrapped errors", func(t *testing.T) {
		wrapped := fmt.Errorf("tx: %w", NoActiveSession())
		assert.True(t, HasCode(wrapped, ErrCodeNoActiveSession))
		assert.False(t, HasCode(wrapped, ErrCodeSessionNotFound))
		assert.False(t, HasCode(nil, ErrCodeNoActiveSession))
	})
}
