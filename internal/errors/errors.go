package errors

import (
	"errors"
)

// Sentinel errors for the categories the core distinguishes.
var (
	// ErrInvalidInput - rejected before any write (bad disposition action, missing required field)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - no such session, artifact, or lock record
	ErrNotFound = errors.New("not found")

	// ErrConflict - lock held by another session, or a refused clear
	ErrConflict = errors.New("conflict")

	// ErrTransient - gateway timeout/network failure, worth retrying
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned a payload the parser could not decode
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - anything unexpected, including I/O failures that are not ENOENT
	ErrInternal = errors.New("internal error")
)
