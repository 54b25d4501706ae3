package handler

import (
	"encoding/json"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/middleware"
	"github.com/stakepot/arena-server-go/internal/service"
)

const maxMessageLength = 4000

type AttemptHandler struct {
	attemptService *service.AttemptService
}

func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

func (h *AttemptHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/{attemptID}", h.Get)
	r.Post("/{attemptID}/messages", h.SubmitMessage)

	return r
}

type createAttemptRequest struct {
	PaymentReference string `json:"paymentReference"`
}

// POST /v1/attempts
func (h *AttemptHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	var req createAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.PaymentReference == "" {
		writeError(w, apperrors.MissingRequired("paymentReference"))
		return
	}

	attempt, err := h.attemptService.CreateAttempt(r.Context(), user.ID, req.PaymentReference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

// GET /v1/attempts/{attemptID}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	attemptID := chi.URLParam(r, "attemptID")
	if attemptID == "" {
		writeError(w, apperrors.MissingRequired("attemptID"))
		return
	}

	view, err := h.attemptService.GetAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.Attempt.UserID != user.ID {
		writeError(w, apperrors.Forbidden("attempt belongs to a different user"))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type submitMessageRequest struct {
	Content string `json:"content"`
}

// POST /v1/attempts/{attemptID}/messages
func (h *AttemptHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	attemptID := chi.URLParam(r, "attemptID")
	if attemptID == "" {
		writeError(w, apperrors.MissingRequired("attemptID"))
		return
	}

	var req submitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if req.Content == "" {
		writeError(w, apperrors.MissingRequired("content"))
		return
	}
	if utf8.RuneCountInString(req.Content) > maxMessageLength {
		writeError(w, apperrors.InvalidInput("content", "message too long"))
		return
	}

	view, err := h.attemptService.GetAttempt(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view.Attempt.UserID != user.ID {
		writeError(w, apperrors.Forbidden("attempt belongs to a different user"))
		return
	}

	message, err := h.attemptService.SubmitMessage(r.Context(), attemptID, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}
