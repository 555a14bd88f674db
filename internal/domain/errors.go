package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a session id resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoUploadData is returned when a session has no retained upload
	// payload, e.g. after completion purged it.
	ErrNoUploadData = errors.New("no upload data for session")

	// ErrSessionState is returned when an operation is requested in a phase
	// that does not permit it.
	ErrSessionState = errors.New("invalid session state")
)
