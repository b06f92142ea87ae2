package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/payout"
	"github.com/dukerupert/chorehub/internal/store"
)

type PayoutHandler struct {
	coordinator *payout.Coordinator
	payouts     *store.PayoutStore
	chores      *store.ChoreStore
	logger      *slog.Logger
}

func NewPayoutHandler(coordinator *payout.Coordinator, payouts *store.PayoutStore, chores *store.ChoreStore, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{coordinator: coordinator, payouts: payouts, chores: chores, logger: logger}
}

// involved reports whether the caller owns the chore or is its worker.
func (h *PayoutHandler) involved(r *http.Request, choreID int64) (bool, error) {
	chore, err := h.chores.GetByID(choreID)
	if err != nil || chore == nil {
		return false, err
	}
	actorID := auth.UserID(r.Context())
	if chore.CreatedBy == actorID {
		return true, nil
	}
	return chore.AssignedWorkerID != nil && *chore.AssignedWorkerID == actorID, nil
}

// Create triggers the payout for a completed chore. The detached attempt
// after completion usually gets there first; this is the manual path.
func (h *PayoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	ok, err := h.involved(r, choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not a party to this chore", Code: "forbidden"})
		return
	}

	rec, err := h.coordinator.CreatePayout(r.Context(), choreID)
	if err != nil {
		// A failed transfer still produced a payout row worth returning.
		if rec != nil {
			writeJSON(w, http.StatusBadGateway, rec)
			return
		}
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Get returns the latest payout for a chore.
func (h *PayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	ok, err := h.involved(r, choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not a party to this chore", Code: "forbidden"})
		return
	}

	rec, err := h.payouts.GetByChore(choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "payout not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Retry re-runs a failed payout.
func (h *PayoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	payoutID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	existing, err := h.payouts.GetByID(payoutID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "payout not found", Code: "not_found"})
		return
	}
	ok, err := h.involved(r, existing.ChoreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "not a party to this chore", Code: "forbidden"})
		return
	}

	rec, err := h.coordinator.RetryPayout(r.Context(), payoutID)
	if err != nil {
		if rec != nil {
			writeJSON(w, http.StatusBadGateway, rec)
			return
		}
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
