package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Sessions
	ErrCodeDuplicateActiveSession ErrorCode = "DUPLICATE_ACTIVE_SESSION"
	ErrCodeNoActiveSession        ErrorCode = "NO_ACTIVE_SESSION"
	ErrCodeSessionNotFound        ErrorCode = "SESSION_NOT_FOUND"

	// Attempts
	ErrCodeAttemptNotFound  ErrorCode = "ATTEMPT_NOT_FOUND"
	ErrCodeDuplicateAttempt ErrorCode = "DUPLICATE_ATTEMPT"
	ErrCodeQuotaExhausted   ErrorCode = "QUOTA_EXHAUSTED"
	ErrCodeFreeAttemptUsed  ErrorCode = "FREE_ATTEMPT_ALREADY_USED"

	// Payments
	ErrCodePaymentNotFound        ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodePaymentNotConfirmed    ErrorCode = "PAYMENT_NOT_CONFIRMED"
	ErrCodePaymentAlreadyConsumed ErrorCode = "PAYMENT_ALREADY_CONSUMED"
	ErrCodeAmountMismatch         ErrorCode = "AMOUNT_MISMATCH"
	ErrCodePaymentExpired         ErrorCode = "PAYMENT_EXPIRED"

	// Scoring oracle
	ErrCodeScoringUnavailable ErrorCode = "SCORING_UNAVAILABLE"
	ErrCodeScoringFormat      ErrorCode = "SCORING_FORMAT_ERROR"

	// Authentication & Authorization
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func DuplicateActiveSession() *AppError {
	return New(ErrCodeDuplicateActiveSession, "An active session already exists")
}

func NoActiveSession() *AppError {
	return New(ErrCodeNoActiveSession, "No active session")
}

func SessionNotFound() *AppError {
	return New(ErrCodeSessionNotFound, "Session not found")
}

func AttemptNotFound() *AppError {
	return New(ErrCodeAttemptNotFound, "Attempt not found")
}

func DuplicateAttempt() *AppError {
	return New(ErrCodeDuplicateAttempt, "User already has an attempt in this session")
}

func QuotaExhausted() *AppError {
	return New(ErrCodeQuotaExhausted, "No messages remaining for this attempt")
}

func FreeAttemptAlreadyUsed() *AppError {
	return New(ErrCodeFreeAttemptUsed, "Free attempt has already been used")
}

func PaymentNotFound() *AppError {
	return New(ErrCodePaymentNotFound, "Payment not found")
}

func PaymentNotConfirmed(status string) *AppError {
	return New(ErrCodePaymentNotConfirmed, fmt.Sprintf("Payment is not confirmed (status: %s)", status))
}

func PaymentAlreadyConsumed() *AppError {
	return New(ErrCodePaymentAlreadyConsumed, "Payment has already been consumed")
}

func AmountMismatch(expected, got string) *AppError {
	return New(ErrCodeAmountMismatch, "Payment amount does not match the required entry fee").
		WithDetails(map[string]string{"expected": expected, "got": got})
}

func PaymentExpired() *AppError {
	return New(ErrCodePaymentExpired, "Payment is older than the freshness window")
}

func ScoringUnavailable(cause error) *AppError {
	return Wrap(ErrCodeScoringUnavailable, "Scoring service temporarily unavailable", cause)
}

func ScoringFormat(cause error) *AppError {
	return Wrap(ErrCodeScoringFormat, "Scoring service returned an unparsable verdict", cause)
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err is an AppError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
