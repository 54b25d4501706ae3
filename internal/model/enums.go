package model

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// FreeAttemptReference is the synthetic payment reference returned by
// payment initiation when the user still holds their lifetime free-attempt
// entitlement. It never corresponds to a payment row.
const FreeAttemptReference = "free_attempt"
