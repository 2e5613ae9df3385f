package engine

import "errors"

var (
	// ErrInvalidInstance indicates an instance id that cannot be resolved.
	ErrInvalidInstance = errors.New("invalid instance id")
	// ErrInstanceExists indicates an instance with the same id is running.
	ErrInstanceExists = errors.New("instance already exists")
	// ErrInstanceNotFound indicates no instance is registered under the id.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrInstanceClosed indicates the instance has been destroyed.
	ErrInstanceClosed = errors.New("instance destroyed")
	// ErrTickerRunning indicates Start was called on a running ticker.
	ErrTickerRunning = errors.New("ticker already running")
)
