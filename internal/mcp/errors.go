package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/sigtrack/internal/domain/archive"
	"github.com/rpggio/sigtrack/internal/domain/entity"
	"github.com/rpggio/sigtrack/internal/engine"
)

var (
	errInvalidArguments = errors.New("invalid arguments")
	errArchiveDisabled  = errors.New("archive not configured")
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors become
// INTERNAL without leaking their text.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, engine.ErrInstanceNotFound):
		return &APIError{Code: "INSTANCE_NOT_FOUND", Message: "instance not found", RecoveryHint: "Call list_instances for valid ids"}
	case errors.Is(err, engine.ErrInstanceClosed):
		return &APIError{Code: "INSTANCE_DESTROYED", Message: "instance destroyed", RecoveryHint: "Use a running instance"}
	case errors.Is(err, entity.ErrEntityNotFound):
		return &APIError{Code: "ENTITY_NOT_FOUND", Message: "entity not found", RecoveryHint: "Check the entity id in get_snapshot"}
	case errors.Is(err, entity.ErrMissingID):
		return &APIError{Code: "MISSING_ID", Message: "event has no entity id", RecoveryHint: "Set id on every event"}
	case errors.Is(err, errInvalidArguments):
		return &APIError{Code: "INVALID_ARGUMENTS", Message: err.Error()}
	case errors.Is(err, errArchiveDisabled):
		return &APIError{Code: "ARCHIVE_DISABLED", Message: "archive not configured", RecoveryHint: "Run the server with a database"}
	case errors.Is(err, archive.ErrInvalidInput):
		return &APIError{Code: "INVALID_EXPORT", Message: "export could not be archived"}
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error"}
	}
}
