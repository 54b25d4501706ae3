package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

type AttemptRepository interface {
	FindByID(ctx context.Context, id string) (*model.Attempt, error)
	// FindByIDForUpdate locks the attempt row; the quota check-and-decrement
	// critical section runs under this lock.
	FindByIDForUpdate(ctx context.Context, id string) (*model.Attempt, error)
	FindPaidByUserAndSession(ctx context.Context, userID, sessionID string) (*model.Attempt, error)
	Create(ctx context.Context, params model.CreateAttemptParams) (*model.Attempt, error)
	// DecrementQuota subtracts one message from the attempt. Callers must
	// hold the row lock and have verified messages_remaining > 0.
	DecrementQuota(ctx context.Context, id string) error
	SetScore(ctx context.Context, id string, score float64) error
	SetEarnings(ctx context.Context, id string, earnings money.Amount) error
	ListScoredBySession(ctx context.Context, sessionID string) ([]model.Attempt, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Attempt, error)
	GetUserStats(ctx context.Context, userID string) (*model.UserAttemptStats, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) AttemptRepository
}

type attemptRepo struct {
	db database.DBTX
}

func NewAttemptRepository(db *sqlx.DB) AttemptRepository {
	return &attemptRepo{db: db}
}

func (r *attemptRepo) WithTx(tx *sqlx.Tx) AttemptRepository {
	return &attemptRepo{db: tx}
}

func (r *attemptRepo) FindByID(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.GetContext(ctx, &attempt, `
		SELECT * FROM attempts WHERE id = $1
	`, id)
	return HandleNotFound(&attempt, err)
}

func (r *attemptRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.GetContext(ctx, &attempt, `
		SELECT * FROM attempts WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&attempt, err)
}

func (r *attemptRepo) FindPaidByUserAndSession(ctx context.Context, userID, sessionID string) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.GetContext(ctx, &attempt, `
		SELECT * FROM attempts
		WHERE user_id = $1
		AND session_id = $2
		AND NOT is_free_attempt
	`, userID, sessionID)
	return HandleNotFound(&attempt, err)
}

func (r *attemptRepo) Create(ctx context.Context, params model.CreateAttemptParams) (*model.Attempt, error) {
	var attempt model.Attempt
	err := r.db.GetContext(ctx, &attempt, `
		INSERT INTO attempts (id, session_id, user_id, is_free_attempt, messages_remaining)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING *
	`, params.ID, params.SessionID, params.UserID, params.IsFreeAttempt, params.MessagesRemaining)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepo) DecrementQuota(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attempts SET
			messages_remaining = messages_remaining - 1,
			updated_at = $2
		WHERE id = $1 AND messages_remaining > 0
	`, id, time.Now())
	return err
}

func (r *attemptRepo) SetScore(ctx context.Context, id string, score float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attempts SET
			score = $2,
			updated_at = $3
		WHERE id = $1
	`, id, score, time.Now())
	return err
}

func (r *attemptRepo) SetEarnings(ctx context.Context, id string, earnings money.Amount) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attempts SET
			earnings = $2,
			updated_at = $3
		WHERE id = $1
	`, id, earnings, time.Now())
	return err
}

func (r *attemptRepo) ListScoredBySession(ctx context.Context, sessionID string) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT * FROM attempts
		WHERE session_id = $1
		AND score IS NOT NULL
		ORDER BY score DESC, created_at ASC
	`, sessionID)
	return attempts, err
}

func (r *attemptRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.db.SelectContext(ctx, &attempts, `
		SELECT * FROM attempts
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return attempts, err
}

func (r *attemptRepo) GetUserStats(ctx context.Context, userID string) (*model.UserAttemptStats, error) {
	var stats model.UserAttemptStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*)                                    AS total_games,
			COUNT(score)                                AS scored_games,
			COALESCE(AVG(score), 0)                     AS average_score,
			COALESCE(SUM(earnings), 0)                  AS total_earnings
		FROM attempts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
