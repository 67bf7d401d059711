package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/myfview/internal/apperr"
)

// Error codes carried in errResponse.Error.
const (
	codeInvalidIdentifier = "invalid_identifier"
	codeInvalidQuery      = "invalid_query"
	codeNotFound          = "not_found"
	codeInternal          = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errResponse{
		Error:     code,
		Message:   msg,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// handleError maps a service error to its response. Only unexpected errors
// are logged; the client never sees their text.
func handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidIdentifier):
		writeError(w, r, http.StatusBadRequest, codeInvalidIdentifier, "invalid identifier")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "myfile not found")
	default:
		slog.Error(op+" failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()))
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
