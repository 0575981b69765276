package hookbus

import "errors"

// Registration Errors
//
// These errors are returned when managing listener registrations.

// ErrNilListener is returned when registering a nil listener or a listener
// without a function.
var ErrNilListener = errors.New("listener is nil")

// ErrTooManyListeners is returned when a registration would exceed either:
//   - maxListenersPerHook (100 listeners on a single hook)
//   - maxTotalListeners (10,000 listeners across all hooks)
var ErrTooManyListeners = errors.New("listener limit exceeded")

// Service Lifecycle Errors

// ErrServiceClosed is returned when registering or firing on a registry
// that has been closed via Close().
var ErrServiceClosed = errors.New("service is closed")

// ErrAlreadyClosed is returned when calling Close() twice.
var ErrAlreadyClosed = errors.New("service already closed")

// Listener Execution Errors
//
// These errors never reach a caller of Fire. They are logged, recorded in
// metrics and attached to the fire span.

// ErrQueueFull is reported when a pending action result cannot be handed to
// the settle workers. The listener keeps running; only its outcome goes
// unobserved.
var ErrQueueFull = errors.New("settle queue is full")

// ErrListenerPanicked wraps the panic value of a listener or future.
var ErrListenerPanicked = errors.New("listener panicked during execution")
