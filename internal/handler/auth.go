package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorehub/internal/auth"
	"github.com/dukerupert/chorehub/internal/model"
	"github.com/dukerupert/chorehub/internal/store"
)

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAuthHandler(users *store.UserStore, sessions *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, logger: logger}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates a user and opens a session for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "name and email are required", Code: "validation"})
		return
	}
	if req.Role != model.RoleCustomer && req.Role != model.RoleWorker {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "role must be customer or worker", Code: "validation"})
		return
	}

	existing, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, errorBody{Error: "email already registered", Code: "validation"})
		return
	}

	user, err := h.users.Create(req.Name, req.Email, req.Role)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: sess.Token, User: user})
}

type loginRequest struct {
	Email string `json:"email"`
}

// Login opens a session for a known email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}

	user, err := h.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unknown email", Code: "unauthorized"})
		return
	}

	sess, err := h.sessions.Create(user.ID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, User: user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if ok {
		if err := h.sessions.Delete(id.SessionID); err != nil {
			writeError(h.logger, w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "user not found", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type payoutDestinationRequest struct {
	Destination string `json:"destination"`
}

// SetPayoutDestination stores the worker's transfer destination. Workers
// without one cannot be assigned to chores.
func (h *AuthHandler) SetPayoutDestination(w http.ResponseWriter, r *http.Request) {
	var req payoutDestinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON", Code: "validation"})
		return
	}
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Destination == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "destination is required", Code: "validation"})
		return
	}

	id, _ := auth.FromContext(r.Context())
	if id.Role != model.RoleWorker {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "only workers set a payout destination", Code: "forbidden"})
		return
	}
	if err := h.users.SetPayoutDestination(id.UserID, req.Destination); err != nil {
		writeError(h.logger, w, err)
		return
	}

	user, err := h.users.GetByID(id.UserID)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
