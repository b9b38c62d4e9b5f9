package scheduler

import "errors"

var (
	// ErrAlreadyStarted is returned when jobs are registered after Start
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrFeedUnavailable wraps transport and decoding failures of the tracking feed
	ErrFeedUnavailable = errors.New("tracking feed unavailable")
)
