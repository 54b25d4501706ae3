package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/database"
	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
	"github.com/stakepot/arena-server-go/internal/repository"
)

// SessionService owns the session lifecycle: it is the only writer of
// session status transitions and of the pot distribution at close.
type SessionService struct {
	db          *database.DB
	sessionRepo repository.SessionRepository
	attemptRepo repository.AttemptRepository

	// intn breaks score ties when picking the highlighted attempt;
	// injectable for deterministic tests.
	intn func(n int) int
}

func NewSessionService(
	db *database.DB,
	sessionRepo repository.SessionRepository,
	attemptRepo repository.AttemptRepository,
) *SessionService {
	return &SessionService{
		db:          db,
		sessionRepo: sessionRepo,
		attemptRepo: attemptRepo,
		intn:        rand.Intn,
	}
}

// CreateSession opens a new active session. The existence check and the
// insert run in one transaction holding a lock on any current active row,
// and the partial unique index on active sessions backstops the
// phantom-insert window, so two simultaneous creators cannot both succeed.
func (s *SessionService) CreateSession(ctx context.Context, entryFee money.Amount, duration time.Duration) (*model.Session, error) {
	var created *model.Session

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.sessionRepo.WithTx(tx)

		existing, err := repo.FindActiveForUpdate(ctx)
		if err != nil {
			return apperrors.Database(err)
		}
		if existing != nil {
			return apperrors.DuplicateActiveSession()
		}

		now := time.Now().UTC()
		created, err = repo.Create(ctx, model.CreateSessionParams{
			ID:        uuid.NewString(),
			StartTime: now,
			EndTime:   now.Add(duration),
			EntryFee:  entryFee,
			Status:    model.SessionStatusActive,
		})
		if err != nil {
			if repository.IsUniqueViolation(err, "sessions_single_active") {
				return apperrors.DuplicateActiveSession()
			}
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", created.ID).
		Str("entryFee", created.EntryFee.Display()).
		Time("endTime", created.EndTime).
		Msg("session created")

	return created, nil
}

// EndSession closes a session: distributes the pot over the paid scored
// attempts, records earnings, selects the highlighted attempt and marks
// the session completed — all in one transaction. Ending an already
// completed session is a no-op, which keeps concurrent rollover
// executors harmless.
func (s *SessionService) EndSession(ctx context.Context, sessionID string) (*model.Session, error) {
	var ended *model.Session

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		sessions := s.sessionRepo.WithTx(tx)
		attempts := s.attemptRepo.WithTx(tx)

		session, err := sessions.FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return apperrors.Database(err)
		}
		if session == nil {
			return apperrors.SessionNotFound()
		}
		if session.Status == model.SessionStatusCompleted {
			ended = session
			return nil
		}
		if session.Status != model.SessionStatusActive {
			return apperrors.ValidationError("only active sessions can be ended")
		}

		scored, err := attempts.ListScoredBySession(ctx, sessionID)
		if err != nil {
			return apperrors.Database(err)
		}

		var winnerID *string
		if len(scored) > 0 {
			var paid []model.Attempt
			for _, a := range scored {
				if !a.IsFreeAttempt {
					paid = append(paid, a)
				}
			}

			dist := distributePot(paid, session.TotalPot)
			for _, a := range scored {
				earnings := money.Amount(0)
				if !a.IsFreeAttempt {
					earnings = dist.Earnings[a.ID]
				}
				if err := attempts.SetEarnings(ctx, a.ID, earnings); err != nil {
					return apperrors.Database(err)
				}
			}

			highlighted := pickHighlighted(scored, s.intn)
			winnerID = &highlighted.ID

			log.Info().
				Str("sessionId", sessionID).
				Str("pot", session.TotalPot.Display()).
				Str("retained", dist.Retained().Display()).
				Str("highlightedAttemptId", highlighted.ID).
				Int("scoredAttempts", len(scored)).
				Msg("session pot distributed")
		}

		if err := sessions.MarkCompleted(ctx, sessionID, winnerID); err != nil {
			return apperrors.Database(err)
		}

		ended, err = sessions.FindByID(ctx, sessionID)
		if err != nil {
			return apperrors.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sessionId", ended.ID).Msg("session ended")
	return ended, nil
}

// GetCurrent returns the active session.
func (s *SessionService) GetCurrent(ctx context.Context) (*model.Session, error) {
	session, err := s.sessionRepo.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NoActiveSession()
	}
	return session, nil
}

// GetByID returns any session, completed ones included.
func (s *SessionService) GetByID(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.SessionNotFound()
	}
	return session, nil
}

func (s *SessionService) GetStats(ctx context.Context) (*model.SessionStats, error) {
	stats, err := s.sessionRepo.GetStats(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return stats, nil
}

// pickHighlighted returns the attempt with the maximum score, free attempts
// included; ties are broken uniformly at random.
func pickHighlighted(scored []model.Attempt, intn func(int) int) *model.Attempt {
	var best []model.Attempt
	bestScore := -1.0

	for _, a := range scored {
		if a.Score == nil {
			continue
		}
		switch {
		case *a.Score > bestScore:
			bestScore = *a.Score
			best = best[:0]
			best = append(best, a)
		case *a.Score == bestScore:
			best = append(best, a)
		}
	}

	if len(best) == 0 {
		return nil
	}
	pick := best[intn(len(best))]
	return &pick
}
