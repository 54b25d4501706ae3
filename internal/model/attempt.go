package model

import (
	"time"

	"github.com/stakepot/arena-server-go/internal/money"
)

type Attempt struct {
	ID                string        `db:"id" json:"id"`
	SessionID         string        `db:"session_id" json:"sessionId"`
	UserID            string        `db:"user_id" json:"userId"`
	IsFreeAttempt     bool          `db:"is_free_attempt" json:"isFreeAttempt"`
	Score             *float64      `db:"score" json:"score,omitempty"`
	Earnings          *money.Amount `db:"earnings" json:"earnings,omitempty"`
	MessagesRemaining int           `db:"messages_remaining" json:"messagesRemaining"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
}

// Scored reports whether the judge has rated this attempt.
func (a *Attempt) Scored() bool {
	return a.Score != nil
}

type CreateAttemptParams struct {
	ID                string
	SessionID         string
	UserID            string
	IsFreeAttempt     bool
	MessagesRemaining int
}

// UserAttemptStats is the per-user aggregate over all attempts.
type UserAttemptStats struct {
	TotalGames    int          `db:"total_games" json:"totalGames"`
	ScoredGames   int          `db:"scored_games" json:"scoredGames"`
	AverageScore  float64      `db:"average_score" json:"averageScore"`
	TotalEarnings money.Amount `db:"total_earnings" json:"totalEarnings"`
}
