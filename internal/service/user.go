package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/attest"
	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/repository"
)

// UserService registers players through the attestation service and
// serves their profiles and aggregates.
type UserService struct {
	userRepo    repository.UserRepository
	attemptRepo repository.AttemptRepository
	messageRepo repository.MessageRepository
	verifier    attest.Verifier
}

func NewUserService(
	userRepo repository.UserRepository,
	attemptRepo repository.AttemptRepository,
	messageRepo repository.MessageRepository,
	verifier attest.Verifier,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		attemptRepo: attemptRepo,
		messageRepo: messageRepo,
		verifier:    verifier,
	}
}

// VerifyAndRegister validates an identity proof and returns the user bound
// to its nullifier, creating one on first sight. Re-verifying with the
// same proof identity is idempotent and returns the existing user.
func (s *UserService) VerifyAndRegister(ctx context.Context, proof json.RawMessage, language string) (*model.User, error) {
	result, err := s.verifier.Verify(ctx, proof)
	if err != nil {
		return nil, apperrors.External("attestation", err)
	}
	if !result.Valid || result.Nullifier == "" {
		return nil, apperrors.Unauthorized("identity proof rejected")
	}

	user, err := s.userRepo.FindByNullifier(ctx, result.Nullifier)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user != nil {
		if err := s.userRepo.TouchLastActive(ctx, user.ID); err != nil {
			log.Error().Err(err).Str("userId", user.ID).Msg("failed to touch last_active")
		}
		return user, nil
	}

	if language == "" {
		language = "en"
	}
	user, err = s.userRepo.Create(ctx, model.CreateUserParams{
		ID:        uuid.NewString(),
		Nullifier: result.Nullifier,
		Language:  language,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().Str("userId", user.ID).Msg("user registered")
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return user, nil
}

// UserStats aggregates a player's history across all sessions.
type UserStats struct {
	model.UserAttemptStats
	TotalMessages int `json:"totalMessages"`
}

func (s *UserService) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	attemptStats, err := s.attemptRepo.GetUserStats(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	messages, err := s.messageRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return &UserStats{UserAttemptStats: *attemptStats, TotalMessages: messages}, nil
}
