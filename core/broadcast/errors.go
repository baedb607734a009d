package broadcast

import "errors"

var (
	// ErrBroadcasterClosed is returned by Publish and Subscribe after Close
	// has been called.
	ErrBroadcasterClosed = errors.New("broadcaster is closed")

	// ErrBroadcasterAlreadyStarted is returned by Start when the coordinator
	// loop is already running.
	ErrBroadcasterAlreadyStarted = errors.New("broadcaster already started")

	// ErrBroadcasterNotStarted is returned by Stop when the coordinator loop
	// was never started.
	ErrBroadcasterNotStarted = errors.New("broadcaster not started")

	// ErrBroadcasterNotRunning indicates a failed healthcheck because the
	// coordinator loop is not running.
	ErrBroadcasterNotRunning = errors.New("broadcaster is not running")

	// ErrSubscriberLagged is the terminal error of a subscription that was
	// evicted because its channel was full when an update arrived.
	ErrSubscriberLagged = errors.New("subscriber lagged")

	// ErrNilFilter is returned by Subscribe when no filter is provided.
	ErrNilFilter = errors.New("filter is nil")

	// ErrNilUpdate is returned by Publish when no update is provided.
	ErrNilUpdate = errors.New("update is nil")

	// ErrHealthcheckFailed wraps healthcheck failures.
	ErrHealthcheckFailed = errors.New("healthcheck failed")
)
