package archive

import "errors"

var (
	// ErrExportNotFound indicates the export doesn't exist.
	ErrExportNotFound = errors.New("export not found")
	// ErrInvalidInput indicates invalid input for archive operations.
	ErrInvalidInput = errors.New("invalid export input")
)
