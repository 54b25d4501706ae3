package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/model"
)

type PaymentRepository interface {
	FindByReference(ctx context.Context, reference string) (*model.Payment, error)
	// FindByReferenceForUpdate locks the payment row. The consume-once
	// validation runs entirely under this lock; a second consumer blocks
	// here and then observes consumed = true.
	FindByReferenceForUpdate(ctx context.Context, reference string) (*model.Payment, error)
	Create(ctx context.Context, params model.CreatePaymentParams) (*model.Payment, error)
	MarkConfirmed(ctx context.Context, id string, externalTxID string) error
	MarkFailed(ctx context.Context, id string) error
	MarkConsumed(ctx context.Context, id string, attemptID string, at time.Time) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PaymentRepository
}

type paymentRepo struct {
	db database.DBTX
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) WithTx(tx *sqlx.Tx) PaymentRepository {
	return &paymentRepo{db: tx}
}

func (r *paymentRepo) FindByReference(ctx context.Context, reference string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT * FROM payments WHERE reference = $1
	`, reference)
	return HandleNotFound(&payment, err)
}

func (r *paymentRepo) FindByReferenceForUpdate(ctx context.Context, reference string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT * FROM payments WHERE reference = $1 FOR UPDATE
	`, reference)
	return HandleNotFound(&payment, err)
}

func (r *paymentRepo) Create(ctx context.Context, params model.CreatePaymentParams) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		INSERT INTO payments (id, reference, user_id, amount, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING *
	`, params.ID, params.Reference, params.UserID, params.Amount)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) MarkConfirmed(ctx context.Context, id string, externalTxID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'confirmed',
			external_tx_id = $2,
			updated_at = $3
		WHERE id = $1 AND status = 'pending'
	`, id, externalTxID, time.Now())
	return err
}

func (r *paymentRepo) MarkFailed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'failed',
			updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`, id, time.Now())
	return err
}

func (r *paymentRepo) MarkConsumed(ctx context.Context, id string, attemptID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			consumed = TRUE,
			consumed_at = $3,
			consumed_by_attempt_id = $2,
			updated_at = $3
		WHERE id = $1
	`, id, attemptID, at)
	return err
}
