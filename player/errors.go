package player

import "errors"

var (
	// ErrNotReady is returned by operations invoked before Initialize has
	// succeeded. The processor state is left untouched.
	ErrNotReady = errors.New("player: processor not initialized")

	// ErrDestroyed is returned by operations invoked after Destroy.
	ErrDestroyed = errors.New("player: processor destroyed")
)

// LoadError wraps a failure to load a decoded buffer. The previously loaded
// buffer, if any, is retained unchanged.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return "player: load buffer: " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// InitError wraps a graph construction failure. The processor remains
// not-ready; every other operation returns ErrNotReady until a later
// Initialize succeeds.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return "player: initialize: " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}
