package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/stakepot/arena-server-go/internal/errors"
	"github.com/stakepot/arena-server-go/internal/middleware"
	"github.com/stakepot/arena-server-go/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/initiate", h.Initiate)
	r.Post("/{reference}/confirm", h.Confirm)

	return r
}

// POST /v1/payments/initiate
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeError(w, apperrors.Unauthorized("authentication required"))
		return
	}

	result, err := h.paymentService.Initiate(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// POST /v1/payments/{reference}/confirm
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		writeError(w, apperrors.MissingRequired("reference"))
		return
	}

	var proof service.ConfirmProof
	if err := json.NewDecoder(r.Body).Decode(&proof); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}
	if proof.TransactionID == "" {
		writeError(w, apperrors.MissingRequired("transactionId"))
		return
	}

	payment, err := h.paymentService.Confirm(r.Context(), reference, proof)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}
