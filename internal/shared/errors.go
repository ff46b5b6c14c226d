package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition indicates a status change the workflow does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
