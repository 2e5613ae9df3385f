package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpggio/sigtrack/internal/domain/activity"
	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/rpggio/sigtrack/internal/engine"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorBody{Error: message})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInstanceNotFound),
		errors.Is(err, entity.ErrEntityNotFound),
		errors.Is(err, archive.ErrExportNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInstanceExists):
		return http.StatusConflict
	case errors.Is(err, engine.ErrInstanceClosed):
		return http.StatusGone
	case errors.Is(err, engine.ErrInvalidInstance),
		errors.Is(err, entity.ErrMissingID),
		errors.Is(err, archive.ErrInvalidInput),
		errors.Is(err, activity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}
