package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pongline/matchcore/internal/apperr"
)

type errorBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
}

// Error maps the core's error taxonomy onto HTTP statuses. Internal errors
// are logged at error level because they signal a design-level inconsistency,
// the rest are ordinary caller mistakes.
func Error(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)

	var status int
	switch code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeConflict:
		status = http.StatusConflict
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeForbidden:
		status = http.StatusForbidden
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "code", code, "error", err)
		JSON(w, status, errorBody{Code: string(code), Error: "internal server error"})
		return
	}
	slog.Warn("request rejected", "code", code, "error", err)
	JSON(w, status, errorBody{Code: string(code), Error: err.Error()})
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, errorBody{Code: string(apperr.CodeValidation), Error: msg})
}
