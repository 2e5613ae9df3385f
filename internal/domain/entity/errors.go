package entity

import "errors"

var (
	// ErrMissingID indicates an observation without an identifier.
	ErrMissingID = errors.New("observation missing id")
	// ErrEntityNotFound indicates the entity isn't tracked by the store.
	ErrEntityNotFound = errors.New("entity not found")
)
