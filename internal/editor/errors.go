package editor

import "errors"

// Application failures. None of these are fatal to the session: the buffer
// and lifecycle state stay intact and editable through any of them.
var (
	// ErrPositionLost means the anchor locator could not find the
	// suggestion's target span in the current buffer. The suggestion is
	// never applied at a stale offset; the caller should offer a forced
	// re-analysis instead.
	ErrPositionLost = errors.New("suggestion position lost")

	// ErrUnsafeReplacement means the replacement failed the safety gates
	// against the located span.
	ErrUnsafeReplacement = errors.New("replacement failed safety checks")

	// ErrNotActionable means the suggestion has no replacement to apply.
	ErrNotActionable = errors.New("suggestion is informational only")

	// ErrSuggestionNotFound means the id is not among the pending
	// suggestions, either unknown or already resolved.
	ErrSuggestionNotFound = errors.New("no pending suggestion with that id")

	// ErrAlreadyResolved means the suggestion already reached a terminal
	// lifecycle state.
	ErrAlreadyResolved = errors.New("suggestion already applied or rejected")
)
