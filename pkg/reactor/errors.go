package reactor

import "fmt"

var (
	// ErrAlreadyRegistered is wrapped by the UsageError returned when an endpoint that already has a
	// pending interest (in either direction) is waited on again
	ErrAlreadyRegistered = fmt.Errorf("endpoint already registered")
	// ErrInvalidEndpoint is wrapped when a nil or closed endpoint is registered or polled
	ErrInvalidEndpoint = fmt.Errorf("invalid endpoint")
	// ErrNoTask is wrapped when the poller reports readiness for an endpoint with no bound task
	ErrNoTask = fmt.Errorf("readiness reported for endpoint with no bound task")
	// ErrNotRunning is wrapped when a task waits while it does not hold control
	ErrNotRunning = fmt.Errorf("task is not running")
	// ErrNilTask is wrapped when Spawn is called without a function
	ErrNilTask = fmt.Errorf("nil task function")

	// ErrAborted is returned from every wait of the tasks still suspended when the run is aborted
	ErrAborted = fmt.Errorf("reactor aborted")
	// ErrClosed is returned by operations on a closed reactor
	ErrClosed = fmt.Errorf("reactor closed")
	// ErrAlreadyRunning is returned when Run is called while the loop is active, including from inside a task
	ErrAlreadyRunning = fmt.Errorf("reactor already running")
	// ErrTaskPanic wraps a panic recovered from a task
	ErrTaskPanic = fmt.Errorf("task panicked")
	// ErrNotSupported is returned when a poller backend is unavailable on this platform
	ErrNotSupported = fmt.Errorf("poller not supported on this platform")
)
