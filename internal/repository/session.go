package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindByIDForUpdate locks the session row for the rest of the
	// transaction. Must be called on a repository bound to a transaction.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Session, error)
	FindActive(ctx context.Context) (*model.Session, error)
	// FindActiveForUpdate locks the active session row, if any, so the
	// existence check and a subsequent insert are serialized.
	FindActiveForUpdate(ctx context.Context) (*model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	// AddToPot increments total_pot; callers must already hold the row lock.
	AddToPot(ctx context.Context, id string, amount money.Amount) error
	MarkCompleted(ctx context.Context, id string, winningAttemptID *string) error
	GetStats(ctx context.Context) (*model.SessionStats, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

type sessionRepo struct {
	db database.DBTX
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActive(ctx context.Context) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE status = 'active' LIMIT 1
	`)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActiveForUpdate(ctx context.Context) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE status = 'active' LIMIT 1 FOR UPDATE
	`)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, start_time, end_time, entry_fee, total_pot, status)
		VALUES ($1, $2, $3, $4, 0, $5)
		RETURNING *
	`, params.ID, params.StartTime, params.EndTime, params.EntryFee, params.Status)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) AddToPot(ctx context.Context, id string, amount money.Amount) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			total_pot = total_pot + $2,
			updated_at = $3
		WHERE id = $1
	`, id, amount, time.Now())
	return err
}

func (r *sessionRepo) MarkCompleted(ctx context.Context, id string, winningAttemptID *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			status = 'completed',
			winning_attempt_id = $2,
			updated_at = $3
		WHERE id = $1
	`, id, winningAttemptID, time.Now())
	return err
}

func (r *sessionRepo) GetStats(ctx context.Context) (*model.SessionStats, error) {
	var stats model.SessionStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*)                                                  AS total_sessions,
			COUNT(*) FILTER (WHERE status = 'active')                 AS active_sessions,
			COUNT(*) FILTER (WHERE status = 'completed')              AS completed_sessions,
			COALESCE(SUM(total_pot) FILTER (WHERE status = 'completed'), 0) AS total_pot_awarded,
			COALESCE((SELECT COUNT(*) FROM attempts), 0)              AS total_attempts
		FROM sessions
	`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
