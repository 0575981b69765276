package hookbus

// Metrics provides observability data for registry monitoring.
// All counter fields use atomic operations for thread safety.
// Capacity fields are static and don't require atomics.
type Metrics struct {
	// Settle Queue Metrics
	QueueDepth    int64 // Pending action results waiting for a worker (atomic)
	QueueCapacity int64 // Settle queue capacity (static)

	// Dispatch Counters (atomic operations required)
	Fires            int64 // Fire calls on an open registry, unrecognized kinds included
	ListenersInvoked int64 // Listener invocations across all kinds
	ListenerFailures int64 // Failed, panicked or timed out listeners

	// Pending Action Results (atomic operations required)
	PendingSettled  int64 // Settled successfully
	PendingFailed   int64 // Settled with an error or panic
	PendingRejected int64 // Dropped because the settle queue was full
	PendingExpired  int64 // Abandoned after the listener timeout

	// Registration Gauges (require mutex read)
	RegisteredListeners int64 // Includes the page transition cleanup listener
	OneShotPending      int64 // One-shot records waiting for their hook to fire
	PageScopedPending   int64 // Page-scoped records waiting for a transition
}
