package model

import "time"

// Message is one conversational turn of an attempt: the user's input and
// the judge's reply. Rows are append-only and ordered by Seq.
type Message struct {
	ID         string    `db:"id" json:"id"`
	AttemptID  string    `db:"attempt_id" json:"attemptId"`
	Seq        int64     `db:"seq" json:"seq"`
	Content    string    `db:"content" json:"content"`
	AIResponse string    `db:"ai_response" json:"aiResponse"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type CreateMessageParams struct {
	ID         string
	AttemptID  string
	Content    string
	AIResponse string
}
