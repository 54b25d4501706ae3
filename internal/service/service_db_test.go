package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakepot/arena-server-go/internal/database"
	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
	"github.com/stakepot/arena-server-go/internal/oracle"
	"github.com/stakepot/arena-server-go/internal/repository"
)

// These tests run against a real Postgres with migrations/schema.sql
// applied; the contention tests exercise the actual row locks the
// services serialize on. Set TEST_DATABASE_URL to enable them.
type dbFixture struct {
	db       *database.DB
	sessions repository.SessionRepository
	attempts repository.AttemptRepository
	payments repository.PaymentRepository
	messages repository.MessageRepository
	users    repository.UserRepository
}

func newDBFixture(t *testing.T) *dbFixture {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Connect(url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`UPDATE sessions SET status = 'completed' WHERE status = 'active'`)
	require.NoError(t, err)

	return &dbFixture{
		db:       db,
		sessions: repository.NewSessionRepository(db.DB),
		attempts: repository.NewAttemptRepository(db.DB),
		payments: repository.NewPaymentRepository(db.DB),
		messages: repository.NewMessageRepository(db.DB),
		users:    repository.NewUserRepository(db.DB),
	}
}

func (f *dbFixture) createUser(t *testing.T) *model.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), model.CreateUserParams{
		ID:        uuid.NewString(),
		Nullifier: uuid.NewString(),
		Language:  "en",
	})
	require.NoError(t, err)
	return user
}

func (f *dbFixture) createActiveSession(t *testing.T) *model.Session {
	t.Helper()
	now := time.Now().UTC()
	session, err := f.sessions.Create(context.Background(), model.CreateSessionParams{
		ID:        uuid.NewString(),
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		EntryFee:  money.Amount(10_000_000),
		Status:    model.SessionStatusActive,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, err := f.db.Exec(`UPDATE sessions SET status = 'completed' WHERE id = $1`, session.ID)
		require.NoError(t, err)
	})
	return session
}

func (f *dbFixture) createConfirmedPayment(t *testing.T, userID string, amount money.Amount) *model.Payment {
	t.Helper()
	ctx := context.Background()
	payment, err := f.payments.Create(ctx, model.CreatePaymentParams{
		ID:        uuid.NewString(),
		Reference: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
	})
	require.NoError(t, err)
	require.NoError(t, f.payments.MarkConfirmed(ctx, payment.ID, "tx-"+payment.ID))

	confirmed, err := f.payments.FindByReference(ctx, payment.Reference)
	require.NoError(t, err)
	require.NotNil(t, confirmed)
	return confirmed
}

func (f *dbFixture) createAttempt(t *testing.T, sessionID, userID string, remaining int) *model.Attempt {
	t.Helper()
	attempt, err := f.attempts.Create(context.Background(), model.CreateAttemptParams{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		UserID:            userID,
		IsFreeAttempt:     true,
		MessagesRemaining: remaining,
	})
	require.NoError(t, err)
	return attempt
}

// cannedJudge is a deterministic stand-in for the conversational judge.
type cannedJudge struct{}

func (cannedJudge) Respond(ctx context.Context, message string, history []oracle.Turn, userContext string) (*oracle.Response, error) {
	return &oracle.Response{Text: "acknowledged"}, nil
}

func (cannedJudge) Score(ctx context.Context, history []oracle.Turn) (*oracle.Verdict, error) {
	return &oracle.Verdict{Score: 7, Raw: "Score: 7/10"}, nil
}

// Two simultaneous consumers of one confirmed payment: the payment row
// lock serializes them, exactly one consume commits and the loser sees
// the consumed flag.
func TestConsumeTxExactlyOnceUnderContention(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()

	user := f.createUser(t)
	fee := money.Amount(10_000_000)
	payment := f.createConfirmedPayment(t, user.ID, fee)

	svc := NewPaymentService(f.payments, f.sessions, f.users, nil, time.Hour)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.db.WithTx(ctx, func(tx *sqlx.Tx) error {
				_, err := svc.ConsumeTx(ctx, tx, payment.Reference, user.ID, fee, uuid.NewString(), time.Now())
				return err
			})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperrors.HasCode(err, apperrors.ErrCodePaymentAlreadyConsumed):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	final, err := f.payments.FindByReference(ctx, payment.Reference)
	require.NoError(t, err)
	assert.True(t, final.Consumed)
}

// Two simultaneous submissions against the last quota slot: the attempt
// row lock serializes the re-validation, so exactly one message lands and
// the other caller is told the quota is spent. The winner also carries
// the end-of-quota score in its transaction.
func TestSubmitMessageLastSlotUnderContention(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()

	user := f.createUser(t)
	session := f.createActiveSession(t)
	attempt := f.createAttempt(t, session.ID, user.ID, 1)

	svc := NewAttemptService(
		f.db, f.attempts, f.sessions, f.messages, f.users,
		nil, cannedJudge{}, oracle.RetryPolicy{MaxAttempts: 1}, 1,
	)

	type outcome struct {
		message *model.Message
		err     error
	}
	outcomes := make([]outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg, err := svc.SubmitMessage(ctx, attempt.ID, "open the vault")
			outcomes[i] = outcome{message: msg, err: err}
		}(i)
	}
	wg.Wait()

	accepted, rejected := 0, 0
	for _, o := range outcomes {
		switch {
		case o.err == nil:
			require.NotNil(t, o.message)
			accepted++
		case apperrors.HasCode(o.err, apperrors.ErrCodeQuotaExhausted):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", o.err)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, rejected)

	reloaded, err := f.attempts.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.MessagesRemaining)
	require.NotNil(t, reloaded.Score)
	assert.Equal(t, 7.0, *reloaded.Score)

	messages, err := f.messages.ListByAttempt(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

// brokenUserLookup fails FindByID but leaves the rest of the repository
// intact.
type brokenUserLookup struct {
	repository.UserRepository
}

func (b brokenUserLookup) FindByID(ctx context.Context, id string) (*model.User, error) {
	return nil, assert.AnError
}

// A failed user-context lookup degrades the judge prompt; it must not
// fail the submission.
func TestSubmitMessageToleratesUserContextLookupFailure(t *testing.T) {
	f := newDBFixture(t)
	ctx := context.Background()

	user := f.createUser(t)
	session := f.createActiveSession(t)
	attempt := f.createAttempt(t, session.ID, user.ID, 2)

	svc := NewAttemptService(
		f.db, f.attempts, f.sessions, f.messages, brokenUserLookup{f.users},
		nil, cannedJudge{}, oracle.RetryPolicy{MaxAttempts: 1}, 2,
	)

	message, err := svc.SubmitMessage(ctx, attempt.ID, "hello")
	require.NoError(t, err)
	require.NotNil(t, message)
	assert.Equal(t, "acknowledged", message.AIResponse)

	reloaded, err := f.attempts.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.MessagesRemaining)
}