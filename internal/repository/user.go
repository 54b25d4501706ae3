package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/stakepot/arena-server-go/internal/database"
	"github.com/stakepot/arena-server-go/internal/model"
)

type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	// FindByIDForUpdate locks the user row; the free-attempt entitlement
	// check-and-mark runs under this lock.
	FindByIDForUpdate(ctx context.Context, id string) (*model.User, error)
	FindByNullifier(ctx context.Context, nullifier string) (*model.User, error)
	Create(ctx context.Context, params model.CreateUserParams) (*model.User, error)
	MarkFreeAttemptUsed(ctx context.Context, id string) error
	SetWalletAddress(ctx context.Context, id string, address string) error
	TouchLastActive(ctx context.Context, id string) error
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UserRepository
}

type userRepo struct {
	db database.DBTX
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) WithTx(tx *sqlx.Tx) UserRepository {
	return &userRepo{db: tx}
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE id = $1 FOR UPDATE
	`, id)
	return HandleNotFound(&user, err)
}

func (r *userRepo) FindByNullifier(ctx context.Context, nullifier string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		SELECT * FROM users WHERE nullifier = $1
	`, nullifier)
	return HandleNotFound(&user, err)
}

func (r *userRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, `
		INSERT INTO users (id, nullifier, language)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.ID, params.Nullifier, params.Language)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) MarkFreeAttemptUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			used_free_attempt = TRUE,
			last_active = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *userRepo) SetWalletAddress(ctx context.Context, id string, address string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET
			wallet_address = $2,
			last_active = $3
		WHERE id = $1
	`, id, address, time.Now())
	return err
}

func (r *userRepo) TouchLastActive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_active = $2 WHERE id = $1
	`, id, time.Now())
	return err
}
