package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stakepot/arena-server-go/internal/config"
	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/model"
	"github.com/stakepot/arena-server-go/internal/money"
)

// SessionLifecycle is the slice of the session service the rollover needs.
type SessionLifecycle interface {
	GetCurrent(ctx context.Context) (*model.Session, error)
	EndSession(ctx context.Context, sessionID string) (*model.Session, error)
	CreateSession(ctx context.Context, entryFee money.Amount, duration time.Duration) (*model.Session, error)
}

// RolloverJob keeps exactly one session running: each tick it ends the
// active session once its end time has passed and immediately opens the
// next one. Ticks are idempotent, so overlapping executors (or a restart
// mid-rollover) converge instead of colliding.
type RolloverJob struct {
	sessions SessionLifecycle
	entryFee money.Amount
	duration time.Duration
	interval time.Duration
	done     chan struct{}

	now func() time.Time
}

func NewRolloverJob(sessions SessionLifecycle, entryFee money.Amount, duration, interval time.Duration) *RolloverJob {
	return &RolloverJob{
		sessions: sessions,
		entryFee: entryFee,
		duration: duration,
		interval: interval,
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

func (j *RolloverJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("rollover job started")
}

func (j *RolloverJob) Stop() {
	close(j.done)
	log.Info().Msg("rollover job stopped")
}

func (j *RolloverJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.tick()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.tick()
		}
	}
}

func (j *RolloverJob) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), config.RolloverTickTimeout)
	defer cancel()

	current, err := j.sessions.GetCurrent(ctx)
	switch {
	case apperrors.HasCode(err, apperrors.ErrCodeNoActiveSession):
		// Cold start or a crash between end and create; just open one.
	case err != nil:
		log.Error().Err(err).Msg("rollover: failed to load active session")
		return
	case !current.Expired(j.now()):
		return
	default:
		if _, err := j.sessions.EndSession(ctx, current.ID); err != nil {
			log.Error().Err(err).Str("sessionId", current.ID).Msg("rollover: failed to end session")
			return
		}
		log.Info().Str("sessionId", current.ID).Msg("rollover: session ended")
	}

	created, err := j.sessions.CreateSession(ctx, j.entryFee, j.duration)
	if err != nil {
		// Another executor won the race; the invariant holds either way.
		if apperrors.HasCode(err, apperrors.ErrCodeDuplicateActiveSession) {
			return
		}
		log.Error().Err(err).Msg("rollover: failed to create session")
		return
	}
	log.Info().Str("sessionId", created.ID).Msg("rollover: session created")
}
