package editor

import "errors"

var (
	// ErrLoad wraps every failure to turn the caller's input into an image.
	// The session never starts.
	ErrLoad = errors.New("image could not be loaded")

	// ErrPrecondition is returned by Save on a session without a decoded
	// source, or one that was already saved or cancelled.
	ErrPrecondition = errors.New("session cannot be saved")

	ErrUnknownHint       = errors.New("unknown aspect hint")
	ErrUnknownHandle     = errors.New("unknown drag handle")
	ErrUnknownAspect     = errors.New("unknown aspect mode")
	ErrUnknownPreset     = errors.New("unknown filter preset")
	ErrUnknownAdjustment = errors.New("unknown adjustment")
	ErrDragActive        = errors.New("a drag is already active")
	ErrNoDrag            = errors.New("no drag is active")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionClosed     = errors.New("session is closed")
	ErrTooManySessions   = errors.New("too many open sessions")
)
