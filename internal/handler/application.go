package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

type ApplicationHandler struct {
	apps   *store.ApplicationStore
	chores *store.ChoreStore
	logger *slog.Logger
}

func NewApplicationHandler(apps *store.ApplicationStore, chores *store.ChoreStore, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{apps: apps, chores: chores, logger: logger}
}

type applyRequest struct {
	BidAmount int64  `json:"bid_amount"`
	Message   string `json:"message"`
}

// Apply records a worker's bid on a published chore. One application per
// worker per chore; the unique index backs that up.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}
	if req.BidAmount <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bid_amount must be positive", Code: "validation"})
		return
	}

	chore, err := h.chores.GetByID(choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "chore not found", Code: "not_found"})
		return
	}
	if chore.Status != model.ChorePublished {
		writeJSON(w, http.StatusConflict, errorBody{
			Error:    "chore is not open for applications",
			Code:     "invalid_state_transition",
			Expected: string(model.ChorePublished),
			Actual:   string(chore.Status),
		})
		return
	}

	workerID := auth.UserID(r.Context())
	existing, err := h.apps.GetByChoreWorker(choreID, workerID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: "already applied to this chore", Code: "validation"})
		return
	}

	app, err := h.apps.Create(choreID, workerID, req.BidAmount, req.Message)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// ListByChore returns a chore's applications to its owner.
func (h *ApplicationHandler) ListByChore(w http.ResponseWriter, r *http.Request) {
	choreID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}

	chore, err := h.chores.GetByID(choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "chore not found", Code: "not_found"})
		return
	}
	if chore.CreatedBy != auth.UserID(r.Context()) {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "only the chore owner may list applications", Code: "forbidden", Reason: "not_owner"})
		return
	}

	apps, err := h.apps.ListByChore(choreID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}
