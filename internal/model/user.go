package model

import "time"

// User is keyed internally by a UUID; Nullifier is the stable identifier
// handed back by the attestation service and is unique per human.
type User struct {
	ID              string    `db:"id" json:"id"`
	Nullifier       string    `db:"nullifier" json:"-"`
	Language        string    `db:"language" json:"language"`
	WalletAddress   *string   `db:"wallet_address" json:"walletAddress,omitempty"`
	UsedFreeAttempt bool      `db:"used_free_attempt" json:"usedFreeAttempt"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	LastActive      time.Time `db:"last_active" json:"lastActive"`
}

type CreateUserParams struct {
	ID        string
	Nullifier string
	Language  string
}
