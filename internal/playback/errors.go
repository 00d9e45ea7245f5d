package playback

import "errors"

var (
	// ErrRetryRequested is returned by a sink or decoder that wants the
	// handler to retry the current playback attempt even though nothing
	// about the failure looks like a network error.
	ErrRetryRequested = errors.New("playback: retry requested")

	// ErrCancelled marks an attempt that was stopped by its own
	// cancellation token; it is never retried.
	ErrCancelled = errors.New("playback: cancelled")

	// ErrInvalidState is returned when an operation does not make sense
	// given the session's current playback state (e.g. Resume on a
	// session with no active playback). Fatal: never retried.
	ErrInvalidState = errors.New("playback: invalid state")

	// ErrInvalidSource is returned when the track source could not be
	// resolved to anything playable. Fatal: never retried.
	ErrInvalidSource = errors.New("playback: invalid source")

	// ErrNoAudioOutputs is returned when target resolution produced zero
	// local player handles to drive. Fatal: never retried.
	ErrNoAudioOutputs = errors.New("playback: no audio outputs")
)
