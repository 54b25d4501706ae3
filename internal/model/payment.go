package model

import (
	"time"

	"github.com/stakepot/arena-server-go/internal/money"
)

type Payment struct {
	ID                  string        `db:"id" json:"id"`
	Reference           string        `db:"reference" json:"reference"`
	UserID              string        `db:"user_id" json:"userId"`
	Amount              money.Amount  `db:"amount" json:"amount"`
	Status              PaymentStatus `db:"status" json:"status"`
	ExternalTxID        *string       `db:"external_tx_id" json:"externalTxId,omitempty"`
	Consumed            bool          `db:"consumed" json:"consumed"`
	ConsumedAt          *time.Time    `db:"consumed_at" json:"consumedAt,omitempty"`
	ConsumedByAttemptID *string       `db:"consumed_by_attempt_id" json:"consumedByAttemptId,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updatedAt"`
}

type CreatePaymentParams struct {
	ID        string
	Reference string
	UserID    string
	Amount    money.Amount
}
