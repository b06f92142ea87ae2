package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/escrow"
)

type PaymentHandler struct {
	escrow *escrow.Coordinator
	logger *slog.Logger
}

func NewPaymentHandler(esc *escrow.Coordinator, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{escrow: esc, logger: logger}
}

// CreateIntent opens (or returns the pending) escrow payment for a chore.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	payment, err := h.escrow.CreateIntent(r.Context(), choreID, auth.UserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

type verifyRequest struct {
	OrderReference   string `json:"order_reference"`
	PaymentReference string `json:"payment_reference"`
	Signature        string `json:"signature"`
}

// Verify is the capture gateway's callback. It is unauthenticated; the HMAC
// signature is the credential.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}
	if req.OrderReference == "" || req.PaymentReference == "" || req.Signature == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "order_reference, payment_reference, and signature are required", Code: "validation"})
		return
	}

	result, err := h.escrow.Verify(r.Context(), req.OrderReference, req.PaymentReference, req.Signature)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
