package model

import (
	"time"

	"github.com/stakepot/arena-server-go/internal/money"
)

type Session struct {
	ID               string        `db:"id" json:"id"`
	StartTime        time.Time     `db:"start_time" json:"startTime"`
	EndTime          time.Time     `db:"end_time" json:"endTime"`
	EntryFee         money.Amount  `db:"entry_fee" json:"entryFee"`
	TotalPot         money.Amount  `db:"total_pot" json:"totalPot"`
	Status           SessionStatus `db:"status" json:"status"`
	WinningAttemptID *string       `db:"winning_attempt_id" json:"winningAttemptId,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updatedAt"`
}

// Expired reports whether the session's play window has passed.
// Status is not consulted: callers decide what to do with an
// expired-but-still-active session.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.EndTime)
}

type CreateSessionParams struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	EntryFee  money.Amount
	Status    SessionStatus
}

// SessionStats is the aggregate view over all sessions.
type SessionStats struct {
	TotalSessions     int          `db:"total_sessions" json:"totalSessions"`
	ActiveSessions    int          `db:"active_sessions" json:"activeSessions"`
	CompletedSessions int          `db:"completed_sessions" json:"completedSessions"`
	TotalPotAwarded   money.Amount `db:"total_pot_awarded" json:"totalPotAwarded"`
	TotalAttempts     int          `db:"total_attempts" json:"totalAttempts"`
}
