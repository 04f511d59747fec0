package orchestrator

import "gitlab.com/tozd/go/errors"

var (
	// ErrNoContent is returned when no selection holds non-whitespace text.
	ErrNoContent = errors.New("no content to improve")

	// ErrResponseTooLarge is returned when a response exceeds the size cap.
	ErrResponseTooLarge = errors.New("response too large")
)
