package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		// Wrap unknown errors as internal errors
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	status := StatusFromCode(appErr.Code)
	response := ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}

	WriteJSON(w, status, response)
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeAmountMismatch:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized

	// 402 Payment Required
	case apperrors.ErrCodePaymentNotConfirmed:
		return http.StatusPaymentRequired

	// 403 Forbidden
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeSessionNotFound,
		apperrors.ErrCodeNoActiveSession,
		apperrors.ErrCodeAttemptNotFound,
		apperrors.ErrCodePaymentNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeDuplicateActiveSession,
		apperrors.ErrCodeDuplicateAttempt,
		apperrors.ErrCodeQuotaExhausted,
		apperrors.ErrCodeFreeAttemptUsed,
		apperrors.ErrCodePaymentAlreadyConsumed:
		return http.StatusConflict

	// 410 Gone
	case apperrors.ErrCodePaymentExpired:
		return http.StatusGone

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeExternal:
		return http.StatusBadGateway

	// 503 Service Unavailable — the judge may recover; clients should retry
	case apperrors.ErrCodeScoringUnavailable,
		apperrors.ErrCodeScoringFormat:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
