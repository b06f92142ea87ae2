package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/lifecycle"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

type ChoreHandler struct {
	engine *lifecycle.Engine
	chores *store.ChoreStore
	logger *slog.Logger
}

func NewChoreHandler(engine *lifecycle.Engine, chores *store.ChoreStore, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{engine: engine, chores: chores, logger: logger}
}

type createChoreRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Budget      int64  `json:"budget"`
	Publish     bool   `json:"publish"`
}

func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createChoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	chore, err := h.engine.CreateChore(r.Context(), auth.UserID(r.Context()), req.Title, req.Description, req.Budget, req.Publish)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, chore)
}

// List returns chores scoped by the query: mine=created for customers,
// mine=assigned for workers, or status=<status> for the open board.
func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		chores []model.Chore
		err    error
	)
	switch r.URL.Query().Get("mine") {
	case "created":
		chores, err = h.chores.ListByCreator(auth.UserID(r.Context()))
	case "assigned":
		chores, err = h.chores.ListByWorker(auth.UserID(r.Context()))
	default:
		status := model.ChoreStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = model.ChorePublished
		}
		chores, err = h.chores.ListByStatus(status)
	}
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	chore, err := h.chores.GetByID(id)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "chore not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

type editChoreRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Budget      *int64  `json:"budget"`
}

func (h *ChoreHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req editChoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	chore, err := h.engine.EditChore(r.Context(), id, auth.UserID(r.Context()), lifecycle.EditInput{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
	})
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

func (h *ChoreHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.PublishChore)
}

func (h *ChoreHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.StartWork)
}

func (h *ChoreHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.CompleteChore)
}

type assignRequest struct {
	WorkerID int64 `json:"worker_id"`
}

func (h *ChoreHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	chore, err := h.engine.AssignWorker(r.Context(), id, auth.UserID(r.Context()), req.WorkerID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *ChoreHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	var req cancelRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	chore, err := h.engine.CancelChore(r.Context(), id, auth.UserID(r.Context()), req.Reason)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

// transition runs the id-and-actor-only lifecycle edges.
func (h *ChoreHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, choreID, actorID int64) (*model.Chore, error)) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id", Code: "validation"})
		return
	}
	chore, err := fn(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, chore)
}
