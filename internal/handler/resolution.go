package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/lifecycle"
)

// ResolutionHandler exposes cancellation requests and disputes.
type ResolutionHandler struct {
	engine *lifecycle.Engine
	logger *slog.Logger
}

func NewResolutionHandler(engine *lifecycle.Engine, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{engine: engine, logger: logger}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// RequestCancellation is the worker's ask to be released from a chore.
func (h *ResolutionHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	out, err := h.engine.RequestCancellation(r.Context(), choreID, auth.UserID(r.Context()), req.Reason)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

type resolveCancellationRequest struct {
	Approve bool `json:"approve"`
}

// ResolveCancellation is the owner's decision on a worker's request.
func (h *ResolutionHandler) ResolveCancellation(w http.ResponseWriter, r *http.Request) {
	requestID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req resolveCancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	out, err := h.engine.ResolveCancellation(r.Context(), requestID, auth.UserID(r.Context()), req.Approve)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RaiseDispute escalates a chore into client review.
func (h *ResolutionHandler) RaiseDispute(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	out, err := h.engine.RaiseDispute(r.Context(), choreID, auth.UserID(r.Context()), req.Reason)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// ReviewDispute moves an open dispute into review.
func (h *ResolutionHandler) ReviewDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	out, err := h.engine.ReviewDispute(r.Context(), disputeID, auth.UserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type resolveDisputeRequest struct {
	Outcome string `json:"outcome"`
}

// ResolveDispute closes a dispute with outcome "complete" or "cancel".
func (h *ResolutionHandler) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req resolveDisputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	out, err := h.engine.ResolveDispute(r.Context(), disputeID, auth.UserID(r.Context()), req.Outcome)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
