package dispatch

// routingError signals a selector that resolves to no worker. Jobs carrying
// one are rejected before enqueue, so it maps to 404 at the HTTP layer.
type routingError struct{ selector string }

func (e routingError) Error() string { return "no worker for selector: " + e.selector }

// ErrNoWorker constructs a routing error for the given selector.
func ErrNoWorker(selector string) error { return routingError{selector: selector} }

// IsRoutingError reports whether err means the job's selector was unresolvable.
func IsRoutingError(err error) bool {
	_, ok := err.(routingError)
	return ok
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ worker string }

func (e tooBusyError) Error() string { return "too busy: worker " + e.worker }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// encodingError signals a job whose output could not be framed as requested,
// e.g. a non-positive chunk size. Rejected at job construction.
type encodingError struct{ msg string }

func (e encodingError) Error() string { return "encoding: " + e.msg }

// ErrEncoding constructs an encodingError.
func ErrEncoding(msg string) error { return encodingError{msg: msg} }

// IsEncodingError reports whether err indicates an invalid framing request.
func IsEncodingError(err error) bool {
	_, ok := err.(encodingError)
	return ok
}

// adapterError wraps a producer failure during execution. It reaches the
// caller as a terminal error chunk on the job that triggered it.
type adapterError struct{ cause error }

func (e adapterError) Error() string { return "adapter: " + e.cause.Error() }
func (e adapterError) Unwrap() error { return e.cause }

// IsAdapterError reports whether err originated inside a producer.
func IsAdapterError(err error) bool {
	_, ok := err.(adapterError)
	return ok
}

// workerFaultError marks a job failed because its worker loop crashed while
// executing it. The pool restarts the loop; the job is not retried.
type workerFaultError struct{ worker string }

func (e workerFaultError) Error() string { return "worker fault: worker " + e.worker }

// IsWorkerFault reports whether err indicates a crashed worker loop.
func IsWorkerFault(err error) bool {
	_, ok := err.(workerFaultError)
	return ok
}

// poolClosedError is returned by Dispatch after Close.
type poolClosedError struct{}

func (poolClosedError) Error() string { return "pool closed" }

// IsPoolClosed reports whether err means the pool no longer accepts work.
func IsPoolClosed(err error) bool {
	_, ok := err.(poolClosedError)
	return ok
}
