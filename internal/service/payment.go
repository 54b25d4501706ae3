package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
	"github.com/stakepot/arena-server-go/internal/repository"
	"github.com/stakepot/arena-server-go/internal/settlement"
	"github.com/stakepot/arena-server-go/internal/util"
)

// PaymentService is the gate between external settlement and attempt
// creation: it issues references, confirms them against the settlement
// service, and consumes them exactly once.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	settlement  settlement.Client
	freshness   time.Duration
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	settlementClient settlement.Client,
	freshness time.Duration,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		settlement:  settlementClient,
		freshness:   freshness,
	}
}

// InitiateResult tells the caller what to settle externally. Free is set
// when the user still holds the lifetime free-attempt entitlement; the
// reference is then synthetic and nothing needs to be paid.
type InitiateResult struct {
	Reference string       `json:"reference"`
	Amount    money.Amount `json:"amount"`
	Free      bool         `json:"free"`
}

// Initiate opens a payment for the current session's entry fee, or hands
// back the free-attempt reference when the user has not spent theirs.
func (s *PaymentService) Initiate(ctx context.Context, userID string) (*InitiateResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}

	if !user.UsedFreeAttempt {
		return &InitiateResult{Reference: model.FreeAttemptReference, Amount: 0, Free: true}, nil
	}

	session, err := s.sessionRepo.FindActive(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, apperrors.NoActiveSession()
	}

	reference, err := util.GenerateReference()
	if err != nil {
		return nil, apperrors.Internal("failed to generate payment reference").WithCause(err)
	}

	payment, err := s.paymentRepo.Create(ctx, model.CreatePaymentParams{
		ID:        uuid.NewString(),
		Reference: reference,
		UserID:    userID,
		Amount:    session.EntryFee,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("paymentId", payment.ID).
		Str("userId", userID).
		Str("amount", payment.Amount.Display()).
		Msg("payment initiated")

	return &InitiateResult{Reference: payment.Reference, Amount: payment.Amount}, nil
}

// ConfirmProof is the external evidence presented by the client after
// settling a payment.
type ConfirmProof struct {
	TransactionID string `json:"transactionId"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

// Confirm checks the reference against the settlement service and moves
// the payment to confirmed or failed. Re-confirming a payment that has
// already left pending is a no-op returning the stored result.
func (s *PaymentService) Confirm(ctx context.Context, reference string, proof ConfirmProof) (*model.Payment, error) {
	payment, err := s.paymentRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if payment == nil {
		return nil, apperrors.PaymentNotFound()
	}
	if payment.Status != model.PaymentStatusPending {
		return payment, nil
	}

	result, err := s.settlement.CheckTransaction(ctx, reference, proof.TransactionID)
	if err != nil {
		return nil, apperrors.External("settlement", err)
	}

	if !result.Confirmed || result.Amount != payment.Amount {
		if err := s.paymentRepo.MarkFailed(ctx, payment.ID); err != nil {
			return nil, apperrors.Database(err)
		}
		log.Warn().
			Str("paymentId", payment.ID).
			Bool("confirmed", result.Confirmed).
			Int64("expectedRaw", payment.Amount.Raw()).
			Int64("settledRaw", result.Amount.Raw()).
			Msg("payment confirmation failed")
	} else {
		if err := s.paymentRepo.MarkConfirmed(ctx, payment.ID, proof.TransactionID); err != nil {
			return nil, apperrors.Database(err)
		}
		if proof.WalletAddress != "" {
			if err := s.userRepo.SetWalletAddress(ctx, payment.UserID, proof.WalletAddress); err != nil {
				log.Error().Err(err).Str("userId", payment.UserID).Msg("failed to record wallet address")
			}
		}
		log.Info().Str("paymentId", payment.ID).Msg("payment confirmed")
	}

	updated, err := s.paymentRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return updated, nil
}

// ConsumeTx consumes a confirmed payment for a new attempt. It runs inside
// the caller's transaction: the payment row is locked, every precondition
// is re-validated under the lock, and the consumed mark commits or rolls
// back together with the attempt insert and the pot increment. A second
// concurrent consumer blocks on the row lock and then fails with
// PaymentAlreadyConsumed.
func (s *PaymentService) ConsumeTx(ctx context.Context, tx *sqlx.Tx, reference, userID string, required money.Amount, attemptID string, now time.Time) (*model.Payment, error) {
	repo := s.paymentRepo.WithTx(tx)

	payment, err := repo.FindByReferenceForUpdate(ctx, reference)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if payment == nil {
		return nil, apperrors.PaymentNotFound()
	}

	if err := validateConsume(payment, userID, required, now, s.freshness); err != nil {
		return nil, err
	}

	if err := repo.MarkConsumed(ctx, payment.ID, attemptID, now); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("paymentId", payment.ID).
		Str("attemptId", attemptID).
		Msg("payment consumed")

	return payment, nil
}

// validateConsume holds every consume precondition in one place so it can
// be checked under the row lock and exercised directly in tests. Amount
// equality is exact on raw units: two amounts that round to the same
// display value still mismatch.
func validateConsume(p *model.Payment, userID string, required money.Amount, now time.Time, freshness time.Duration) error {
	if p.UserID != userID {
		return apperrors.Forbidden("payment belongs to a different user")
	}
	if p.Consumed {
		return apperrors.PaymentAlreadyConsumed()
	}
	if p.Status != model.PaymentStatusConfirmed {
		return apperrors.PaymentNotConfirmed(string(p.Status))
	}
	if p.Amount != required {
		return apperrors.AmountMismatch(required.Display(), p.Amount.Display())
	}
	if now.Sub(p.CreatedAt) > freshness {
		return apperrors.PaymentExpired()
	}
	return nil
}
