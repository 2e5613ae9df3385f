package activity

import "errors"

var (
	// ErrInvalidInput indicates an annotation is missing required fields.
	ErrInvalidInput = errors.New("invalid annotation input")
)
