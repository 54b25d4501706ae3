package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/middleware"
	"github.com/stakepot/arena-server-go/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type UserHandler struct {
	userService    *service.UserService
	attemptService *service.AttemptService
	authed         []func(http.Handler) http.Handler
}

func NewUserHandler(
	userService *service.UserService,
	attemptService *service.AttemptService,
	authed ...func(http.Handler) http.Handler,
) *UserHandler {
	return &UserHandler{
		userService:    userService,
		attemptService: attemptService,
		authed:         authed,
	}
}

// Routes mounts Verify without authentication; it is the one call that
// happens before a token exists. Everything else runs behind the injected
// auth chain.
func (h *UserHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/verify", h.Verify)

	r.Group(func(r chi.Router) {
		r.Use(h.authed...)
		r.Get("/me", h.GetMe)
		r.Get("/me/stats", h.GetMyStats)
		r.Get("/me/attempts", h.ListMyAttempts)
	})

	return r
}

type verifyRequest struct {
	Proof    json.RawMessage `json:"proof"`
	Language string          `json:"language,omitempty"`
}

// POST /v1/verify
func (h *UserHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if len(req.Proof) == 0 {
		writeError(w, apperrors.MissingRequired("proof"))
		return
	}

	user, err := h.userService.VerifyAndRegister(r.Context(), req.Proof, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GET /v1/users/me/stats
func (h *UserHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	stats, err := h.userService.GetUserStats(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /v1/users/me/attempts?limit=&offset=
func (h *UserHandler) ListMyAttempts(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	attempts, err := h.attemptService.ListUserAttempts(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"attempts": attempts,
		"limit":    limit,
		"offset":   offset,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
