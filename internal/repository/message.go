package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/model"
)

type MessageRepository interface {
	Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]model.Message, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) MessageRepository
}

type messageRepo struct {
	db database.DBTX
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) WithTx(tx *sqlx.Tx) MessageRepository {
	return &messageRepo{db: tx}
}

func (r *messageRepo) Create(ctx context.Context, params model.CreateMessageParams) (*model.Message, error) {
	var message model.Message
	err := r.db.GetContext(ctx, &message, `
		INSERT INTO messages (id, attempt_id, content, ai_response)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, params.ID, params.AttemptID, params.Content, params.AIResponse)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepo) ListByAttempt(ctx context.Context, attemptID string) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE attempt_id = $1
		ORDER BY seq ASC
	`, attemptID)
	return messages, err
}

func (r *messageRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM messages m
		JOIN attempts a ON a.id = m.attempt_id
		WHERE a.user_id = $1
	`, userID)
	return count, err
}
