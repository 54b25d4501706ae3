package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/database"
	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/oracle"
	"github.com/stakepot/arena-server-go/internal/repository"
)

// AttemptService runs the playthrough: attempt creation (free or paid),
// the quota-gated conversation, and end-of-quota scoring.
type AttemptService struct {
	db          *database.DB
	attemptRepo repository.AttemptRepository
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	payments    *PaymentService
	judge       oracle.Client
	retry       oracle.RetryPolicy
	quota       int

	now func() time.Time
}

func NewAttemptService(
	db *database.DB,
	attemptRepo repository.AttemptRepository,
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	payments *PaymentService,
	judge oracle.Client,
	retry oracle.RetryPolicy,
	quota int,
) *AttemptService {
	return &AttemptService{
		db:          db,
		attemptRepo: attemptRepo,
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		payments:    payments,
		judge:       judge,
		retry:       retry,
		quota:       quota,
		now:         time.Now,
	}
}

// CreateAttempt joins the active session. A free-attempt reference burns
// the user's lifetime entitlement under a user-row lock; any other
// reference is consumed through the payment gate, and the consume, the
// attempt insert and the pot increment commit atomically.
func (s *AttemptService) CreateAttempt(ctx context.Context, userID, paymentReference string) (*model.Attempt, error) {
	session, err := s.sessionRepo.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil || session.Expired(s.now()) {
		return nil, apperrors.NoActiveSession()
	}

	var attempt *model.Attempt
	if paymentReference == model.FreeAttemptReference {
		attempt, err = s.createFreeAttempt(ctx, userID, session.ID)
	} else {
		attempt, err = s.createPaidAttempt(ctx, userID, session, paymentReference)
	}
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastActive(ctx, userID); err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to touch last_active")
	}

	log.Info().
		Str("attemptId", attempt.ID).
		Str("sessionId", session.ID).
		Str("userId", userID).
		Bool("free", attempt.IsFreeAttempt).
		Msg("attempt created")

	return attempt, nil
}

func (s *AttemptService) createFreeAttempt(ctx context.Context, userID, sessionID string) (*model.Attempt, error) {
	var attempt *model.Attempt

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		users := s.userRepo.WithTx(tx)

		user, err := users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return apperrors.Database(err)
		}
		if user == nil {
			return apperrors.NotFound("User")
		}
		if user.UsedFreeAttempt {
			return apperrors.FreeAttemptAlreadyUsed()
		}

		session, err := s.sessionRepo.WithTx(tx).FindByID(ctx, sessionID)
		if err != nil {
			return apperrors.Database(err)
		}
		if session == nil || session.Status != model.SessionStatusActive {
			return apperrors.NoActiveSession()
		}

		attempt, err = s.attemptRepo.WithTx(tx).Create(ctx, model.CreateAttemptParams{
			ID:                uuid.NewString(),
			SessionID:         sessionID,
			UserID:            userID,
			IsFreeAttempt:     true,
			MessagesRemaining: s.quota,
		})
		if err != nil {
			return apperrors.Database(err)
		}

		return users.MarkFreeAttemptUsed(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *AttemptService) createPaidAttempt(ctx context.Context, userID string, session *model.Session, reference string) (*model.Attempt, error) {
	existing, err := s.attemptRepo.FindPaidByUserAndSession(ctx, userID, session.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.DuplicateAttempt()
	}

	var attempt *model.Attempt

	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// Lock ordering: session row first, then payment row.
		sessions := s.sessionRepo.WithTx(tx)

		locked, err := sessions.FindByIDForUpdate(ctx, session.ID)
		if err != nil {
			return apperrors.Database(err)
		}
		if locked == nil || locked.Status != model.SessionStatusActive {
			return apperrors.NoActiveSession()
		}

		attemptID := uuid.NewString()
		if _, err := s.payments.ConsumeTx(ctx, tx, reference, userID, locked.EntryFee, attemptID, s.now()); err != nil {
			return err
		}

		attempt, err = s.attemptRepo.WithTx(tx).Create(ctx, model.CreateAttemptParams{
			ID:                attemptID,
			SessionID:         locked.ID,
			UserID:            userID,
			IsFreeAttempt:     false,
			MessagesRemaining: s.quota,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, "attempts_one_paid_per_session") {
				return apperrors.DuplicateAttempt()
			}
			return apperrors.Database(err)
		}

		return sessions.AddToPot(ctx, locked.ID, locked.EntryFee)
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// SubmitMessage plays one conversational turn. The judge's reply is
// fetched before any lock is taken; the quota is then re-validated under
// the attempt row lock, the message appended and the counter decremented.
// The turn that spends the last message also obtains and stores the score
// in the same transaction, so an attempt can never end up quota-spent but
// half-scored.
func (s *AttemptService) SubmitMessage(ctx context.Context, attemptID, content string) (*model.Message, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if attempt == nil {
		return nil, apperrors.AttemptNotFound()
	}
	if attempt.MessagesRemaining <= 0 {
		return nil, apperrors.QuotaExhausted()
	}

	history, err := s.messageRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	userContext := ""
	if user, err := s.userRepo.FindByID(ctx, attempt.UserID); err != nil {
		log.Error().Err(err).Str("userId", attempt.UserID).Msg("failed to load user context")
	} else if user != nil {
		userContext = user.Language
	}

	// The judge can be slow; never call it while holding a row lock.
	turns := toTurns(history)
	var response *oracle.Response
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		response, err = s.judge.Respond(ctx, content, turns, userContext)
		return err
	})
	if err != nil {
		return nil, asOracleError(err)
	}

	var message *model.Message
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		attempts := s.attemptRepo.WithTx(tx)

		locked, err := attempts.FindByIDForUpdate(ctx, attemptID)
		if err != nil {
			return apperrors.Database(err)
		}
		if locked == nil {
			return apperrors.AttemptNotFound()
		}
		// A concurrent submission may have raced ahead while the judge
		// call was in flight.
		if locked.MessagesRemaining <= 0 {
			return apperrors.QuotaExhausted()
		}

		message, err = s.messageRepo.WithTx(tx).Create(ctx, model.CreateMessageParams{
			ID:         uuid.NewString(),
			AttemptID:  attemptID,
			Content:    content,
			AIResponse: response.Text,
		})
		if err != nil {
			return apperrors.Database(err)
		}

		if err := attempts.DecrementQuota(ctx, attemptID); err != nil {
			return apperrors.Database(err)
		}

		if locked.MessagesRemaining == 1 {
			// Last message: judge the whole conversation now so the score
			// commits with the decrement, or neither does.
			final := append(turns, oracle.Turn{Content: content, AIResponse: response.Text})

			var verdict *oracle.Verdict
			err = s.retry.Do(ctx, func(ctx context.Context) error {
				var err error
				verdict, err = s.judge.Score(ctx, final)
				return err
			})
			if err != nil {
				return asOracleError(err)
			}

			if err := attempts.SetScore(ctx, attemptID, verdict.Score); err != nil {
				return apperrors.Database(err)
			}

			log.Info().
				Str("attemptId", attemptID).
				Float64("score", verdict.Score).
				Msg("attempt scored")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.TouchLastActive(ctx, attempt.UserID); err != nil {
		log.Error().Err(err).Str("userId", attempt.UserID).Msg("failed to touch last_active")
	}

	return message, nil
}

// AttemptView is an attempt together with its conversation.
type AttemptView struct {
	Attempt  *model.Attempt  `json:"attempt"`
	Messages []model.Message `json:"messages"`
}

func (s *AttemptService) GetAttempt(ctx context.Context, attemptID string) (*AttemptView, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if attempt == nil {
		return nil, apperrors.AttemptNotFound()
	}

	messages, err := s.messageRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	return &AttemptView{Attempt: attempt, Messages: messages}, nil
}

func (s *AttemptService) ListUserAttempts(ctx context.Context, userID string, limit, offset int) ([]model.Attempt, error) {
	attempts, err := s.attemptRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return attempts, nil
}

// Rescore re-runs the judge over a finished conversation. This is the only
// path that may overwrite an existing score, and it refuses attempts that
// still have quota left.
func (s *AttemptService) Rescore(ctx context.Context, attemptID string) (float64, error) {
	attempt, err := s.attemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if attempt == nil {
		return 0, apperrors.AttemptNotFound()
	}
	if attempt.MessagesRemaining > 0 {
		return 0, apperrors.ValidationError("cannot score an attempt with messages remaining")
	}

	history, err := s.messageRepo.ListByAttempt(ctx, attemptID)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	var verdict *oracle.Verdict
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		verdict, err = s.judge.Score(ctx, toTurns(history))
		return err
	})
	if err != nil {
		return 0, asOracleError(err)
	}

	if err := s.attemptRepo.SetScore(ctx, attemptID, verdict.Score); err != nil {
		return 0, apperrors.Database(err)
	}

	log.Info().
		Str("attemptId", attemptID).
		Float64("score", verdict.Score).
		Msg("attempt rescored")

	return verdict.Score, nil
}

func toTurns(messages []model.Message) []oracle.Turn {
	turns := make([]oracle.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, oracle.Turn{Content: m.Content, AIResponse: m.AIResponse})
	}
	return turns
}

// asOracleError translates oracle failures into the caller-facing
// taxonomy; anything else passes through untouched.
func asOracleError(err error) error {
	var format *oracle.FormatError
	if errors.As(err, &format) {
		return apperrors.ScoringFormat(err)
	}
	var transient *oracle.TransientError
	if errors.As(err, &transient) {
		return apperrors.ScoringUnavailable(err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.ScoringUnavailable(err)
	}
	return err
}
