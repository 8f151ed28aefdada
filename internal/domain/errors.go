package domain

import "errors"

var (
	// ErrPoolUnavailable is reported when the question catalog could not be fetched.
	ErrPoolUnavailable = errors.New("question pool unavailable")
	// ErrNoQuestionsAvailable is reported when the session filters matched nothing.
	ErrNoQuestionsAvailable = errors.New("no questions matched the session filters")
	// ErrPersistenceWrite wraps failed state writes; the session continues in memory.
	ErrPersistenceWrite = errors.New("persistence write failed")
	// ErrInvalidTransition is returned when an operation is not valid in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrSessionNotFound is returned for unknown session IDs.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrProgressNotFound is returned when there is no resumable snapshot.
	ErrProgressNotFound = errors.New("no resumable quiz progress")
	// ErrStateNotFound is returned by state stores for missing keys.
	ErrStateNotFound = errors.New("state key not found")
	// ErrInvalidImport is returned for import bundles of unknown type.
	ErrInvalidImport = errors.New("invalid import bundle")
	// ErrInvalidConfig wraps session configuration validation failures.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrInvalidQuestion wraps catalog entries that break question invariants.
	ErrInvalidQuestion = errors.New("invalid question")
)
