package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

func TestValidateConsume(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	freshness := time.Hour
	fee := money.Amount(10_000_000) // 10.00

	base := func() *model.Payment {
		return &model.Payment{
			ID:        "pay-1",
			Reference: "ref-1",
			UserID:    "user-1",
			Amount:    fee,
			Status:    model.PaymentStatusConfirmed,
			CreatedAt: now.Add(-10 * time.Minute),
		}
	}

	tests := []struct {
		name     string
		mutate   func(p *model.Payment)
		userID   string
		required money.Amount
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "valid payment passes",
			mutate:   func(p *model.Payment) {},
			userID:   "user-1",
			required: fee,
		},
		{
			name:     "wrong owner",
			mutate:   func(p *model.Payment) {},
			userID:   "user-2",
			required: fee,
			wantCode: apperrors.ErrCodeForbidden,
		},
		{
			name:     "already consumed",
			mutate:   func(p *model.Payment) { p.Consumed = true },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodePaymentAlreadyConsumed,
		},
		{
			name:     "still pending",
			mutate:   func(p *model.Payment) { p.Status = model.PaymentStatusPending },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodePaymentNotConfirmed,
		},
		{
			name:     "failed payment",
			mutate:   func(p *model.Payment) { p.Status = model.PaymentStatusFailed },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodePaymentNotConfirmed,
		},
		{
			name:   "consumed wins over status",
			mutate: func(p *model.Payment) { p.Consumed = true; p.Status = model.PaymentStatusPending },
			userID: "user-1", required: fee,
			wantCode: apperrors.ErrCodePaymentAlreadyConsumed,
		},
		{
			name:     "amount short by one raw unit",
			mutate:   func(p *model.Payment) { p.Amount = fee - 1 },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodeAmountMismatch,
		},
		{
			name:     "amount over by one raw unit",
			mutate:   func(p *model.Payment) { p.Amount = fee + 1 },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodeAmountMismatch,
		},
		{
			name:     "expired",
			mutate:   func(p *model.Payment) { p.CreatedAt = now.Add(-2 * time.Hour) },
			userID:   "user-1",
			required: fee,
			wantCode: apperrors.ErrCodePaymentExpired,
		},
		{
			name:     "exactly at freshness boundary passes",
			mutate:   func(p *model.Payment) { p.CreatedAt = now.Add(-freshness) },
			userID:   "user-1",
			required: fee,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payment := base()
			tt.mutate(payment)

			err := validateConsume(payment, tt.userID, tt.required, now, freshness)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
		})
	}
}

// Two raw amounts that render identically must still mismatch.
func TestValidateConsumeDisplayEqualRawDifferent(t *testing.T) {
	now := time.Now()
	required := money.Amount(10_000_000) // displays 10.00
	paid := money.Amount(10_004_000)     // also displays 10.00

	assert.Equal(t, required.Display(), paid.Display())

	payment := &model.Payment{
		UserID:    "user-1",
		Amount:    paid,
		Status:    model.PaymentStatusConfirmed,
		CreatedAt: now,
	}

	err := validateConsume(payment, "user-1", required, now, time.Hour)
	assert.Equal(t, apperrors.ErrCodeAmountMismatch, apperrors.GetCode(err))
}
