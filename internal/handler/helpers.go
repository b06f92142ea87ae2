package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorehub/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

// errorBody is the stable JSON shape for every error response. Optional
// fields are present only when the error carries them.
type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Reason   string `json:"reason,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// writeError maps the error taxonomy onto HTTP statuses. Unclassified
// errors are logged and surface as opaque 500s.
func writeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: string(apperr.CodeInternal)})
		return
	}

	var status int
	switch e.Code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	case apperr.CodeInvalidTransition:
		status = http.StatusConflict
	case apperr.CodeInvalidSignature, apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeExternal:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= 500 {
		logger.Error("request failed", "code", e.Code, "error", err)
	}
	writeJSON(w, status, errorBody{
		Error:    e.Message,
		Code:     string(e.Code),
		Reason:   e.Reason,
		Expected: e.Expected,
		Actual:   e.Actual,
	})
}
