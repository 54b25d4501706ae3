package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/service"
)

type SessionHandler struct {
	sessionService *service.SessionService
}

func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/current", h.GetCurrent)
	r.Get("/stats", h.GetStats)
	r.Get("/{sessionID}", h.GetByID)

	return r
}

// GET /v1/sessions/current
func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.GetCurrent(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GET /v1/sessions/stats
func (h *SessionHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessionService.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /v1/sessions/{sessionID}
func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		writeError(w, apperrors.MissingRequired("sessionID"))
		return
	}

	session, err := h.sessionService.GetByID(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
