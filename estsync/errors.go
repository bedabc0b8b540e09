package estsync

import "errors"

// Remote failure taxonomy. Both classes are absorbed by the reconciler:
// the affected estimate degrades to pending/failed and is retried by a later
// sync pass instead of surfacing an error to the caller. Local storage and
// validation errors, by contrast, propagate.
var (
	// ErrRemoteUnavailable covers absent network, failed requests and
	// timeouts. Recoverable; retried automatically.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrRemoteConflict covers remote rejections that are not availability
	// problems (constraint violations and the like). Logged and left
	// pending, not hot-retried.
	ErrRemoteConflict = errors.New("remote store rejected change")
)
