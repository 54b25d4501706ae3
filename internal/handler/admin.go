package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/money"
	"github.com/stakepot/arena-server-go/internal/service"
)

// AdminHandler exposes the operator controls: manual session lifecycle
// and rescoring. The admin middleware is applied by the router that
// mounts these routes.
type AdminHandler struct {
	sessionService *service.SessionService
	attemptService *service.AttemptService

	defaultEntryFee money.Amount
	defaultDuration time.Duration
}

func NewAdminHandler(
	sessionService *service.SessionService,
	attemptService *service.AttemptService,
	defaultEntryFee money.Amount,
	defaultDuration time.Duration,
) *AdminHandler {
	return &AdminHandler{
		sessionService:  sessionService,
		attemptService:  attemptService,
		defaultEntryFee: defaultEntryFee,
		defaultDuration: defaultDuration,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/sessions", h.CreateSession)
	r.Post("/sessions/{sessionID}/end", h.EndSession)
	r.Post("/attempts/{attemptID}/rescore", h.RescoreAttempt)

	return r
}

type createSessionRequest struct {
	EntryFee        string `json:"entryFee,omitempty"`
	DurationMinutes int    `json:"durationMinutes,omitempty"`
}

// POST /v1/admin/sessions
func (h *AdminHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	req := createSessionRequest{}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
			return
		}
	}

	entryFee := h.defaultEntryFee
	if req.EntryFee != "" {
		parsed, err := money.Parse(req.EntryFee)
		if err != nil {
			writeError(w, apperrors.InvalidInput("entryFee", err.Error()))
			return
		}
		entryFee = parsed
	}

	duration := h.defaultDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	session, err := h.sessionService.CreateSession(r.Context(), entryFee, duration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// POST /v1/admin/sessions/{sessionID}/end
func (h *AdminHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, apperrors.MissingRequired("sessionID"))
		return
	}

	session, err := h.sessionService.EndSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// POST /v1/admin/attempts/{attemptID}/rescore
func (h *AdminHandler) RescoreAttempt(w http.ResponseWriter, r *http.Request) {
	attemptID := chi.URLParam(r, "attemptID")
	if attemptID == "" {
		writeError(w, apperrors.MissingRequired("attemptID"))
		return
	}

	score, err := h.attemptService.Rescore(r.Context(), attemptID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attemptId": attemptID,
		"score":     score,
	})
}
