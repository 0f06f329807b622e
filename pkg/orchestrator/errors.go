package orchestrator

import "errors"

var (
	// ErrNotInitialized is returned by ListTools and Invoke before
	// Initialize has succeeded or after Cleanup.
	ErrNotInitialized = errors.New("orchestrator not initialized")
	// ErrSessionNotFound is returned when an endpoint name has no session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAlreadyInitialized is returned by a second Initialize.
	ErrAlreadyInitialized = errors.New("orchestrator already initialized")
	// ErrClosed is returned by Initialize after Cleanup.
	ErrClosed = errors.New("orchestrator closed")
)
