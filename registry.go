package hookbus

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// Resource limits prevent memory exhaustion.
// These limits are enforced during listener registration.
const (
	maxListenersPerHook = 100   // Prevents a single hook from dominating memory
	maxTotalListeners   = 10000 // Prevents unlimited registration across all hooks
)

// strategy dispatches one fire of a hook and returns the payload handed
// back to the caller.
type strategy[T any] func(ctx context.Context, name Key, listeners []*Listener[T], data T) T

// registration is a (hook name, listener) pair tracked by the lifecycle sets.
type registration[T any] struct {
	name     Key
	listener *Listener[T]
}

// Hooks is the registry and dispatcher for one payload type.
//
// Each Hooks value is independent: listeners registered on one registry are
// never reached by fires on another. Build one per composition root (or
// per test) and pass it to the components that register or fire.
//
// Thread Safety:
// Registration, unregistration and lifecycle pruning are serialized by a
// single mutex. Dispatch iterates a snapshot of the listener set taken when
// the fire starts, so listeners may register or unregister freely.
type Hooks[T any] struct {
	clock        clockz.Clock // Time abstraction injected at creation
	logger       *slog.Logger
	telemetry    *telemetry
	broadcaster  Broadcaster
	deprecations map[Key]Key
	listeners    map[Key][]*Listener[T] // Registration order is dispatch order
	once         map[registration[T]]struct{}
	pageScoped   map[registration[T]]struct{}
	strategies   map[Kind]strategy[T]
	transition   *Listener[T] // Clears page-scoped listeners; never removed
	workers      *workerPool[T]
	mu           sync.RWMutex
	timeout      time.Duration
	parallelism  int
	total        int // Tracks total listener count across all hooks
	closed       bool

	// Metrics field - zero initialization provides safe defaults
	metrics Metrics
}

// New creates a registry with the specified options.
//
// Default configuration:
//   - 10 settle workers for pending action results
//   - Auto-calculated settle queue size (workers * 2)
//   - No listener timeout
//   - Unlimited static parallelism
//   - slog.Default() logger and global OpenTelemetry providers
//   - DefaultDeprecations() as the deprecation table
//
// Example:
//
//	hooks := hookbus.New[Page](
//	    hookbus.WithTimeout(2*time.Second),
//	    hookbus.WithLogger(logger),
//	)
//	defer hooks.Close()
func New[T any](opts ...Option) *Hooks[T] {
	cfg := config{
		clock:   clockz.RealClock,
		workers: 10,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.queueSize == 0 {
		cfg.queueSize = cfg.workers * 2
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.deprecations == nil {
		cfg.deprecations = DefaultDeprecations()
	} else {
		cfg.deprecations = maps.Clone(cfg.deprecations)
	}

	impl := &Hooks[T]{
		clock:        cfg.clock,
		logger:       cfg.logger,
		telemetry:    newTelemetry(cfg.tracer, cfg.meter),
		broadcaster:  cfg.broadcaster,
		deprecations: cfg.deprecations,
		listeners:    make(map[Key][]*Listener[T]),
		once:         make(map[registration[T]]struct{}),
		pageScoped:   make(map[registration[T]]struct{}),
		timeout:      cfg.timeout,
		parallelism:  cfg.parallelism,
	}

	impl.strategies = map[Kind]strategy[T]{
		KindFilter: impl.fireFilter,
		KindAction: impl.fireAction,
		KindStatic: impl.fireStatic,
	}
	impl.workers = newWorkerPool[T](cfg, &impl.metrics, impl.reportSettled)
	impl.transition = Observer("page-transition-cleanup", func(context.Context, T) error {
		impl.prunePageScoped()
		return nil
	})
	impl.installTransition()

	return impl
}

// installTransition attaches the page-scoped cleanup listener.
// Caller must hold the write lock, or be New.
func (h *Hooks[T]) installTransition() {
	h.listeners[PageTransitionStart] = append(h.listeners[PageTransitionStart], h.transition)
	h.total++
}

// Register attaches a persistent listener to a hook.
//
// Registering the same listener on the same hook again is a no-op. If the
// hook name is deprecated a warning is logged, but the listener is attached
// to the deprecated name all the same.
func (h *Hooks[T]) Register(name Key, l *Listener[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.register(name, l)
}

// On is an alias for Register.
func (h *Hooks[T]) On(name Key, l *Listener[T]) error {
	return h.Register(name, l)
}

func (h *Hooks[T]) register(name Key, l *Listener[T]) error {
	if h.closed {
		return ErrServiceClosed
	}
	if l == nil || l.fn == nil {
		return ErrNilListener
	}

	h.advise(name, l)

	current := h.listeners[name]
	if slices.Contains(current, l) {
		h.logger.Debug("listener already registered",
			slog.String("hook", name),
			slog.String("listener", l.Name()),
		)
		return nil
	}

	// Enforce resource limits to prevent memory exhaustion
	if len(current) >= maxListenersPerHook || h.total >= maxTotalListeners {
		return ErrTooManyListeners
	}

	h.listeners[name] = append(current, l)
	h.total++

	h.logger.Debug("registered",
		slog.String("hook", name),
		slog.String("listener", l.Name()),
	)
	return nil
}

// Unregister detaches a listener from a hook and reports whether it was
// attached. Unregistering an unknown pair is a no-op.
func (h *Hooks[T]) Unregister(name Key, l *Listener[T]) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.unregister(name, l)
}

// Off is an alias for Unregister.
func (h *Hooks[T]) Off(name Key, l *Listener[T]) bool {
	return h.Unregister(name, l)
}

func (h *Hooks[T]) unregister(name Key, l *Listener[T]) bool {
	current := h.listeners[name]
	i := slices.Index(current, l)
	if i < 0 {
		if len(current) == 0 {
			h.logger.Debug("unregistration failed, hook has no listeners",
				slog.String("hook", name),
			)
		} else {
			h.logger.Debug("unregistration failed, listener is not registered",
				slog.String("hook", name),
				slog.String("listener", listenerName(l)),
			)
		}
		return false
	}

	// Dispatch works on snapshots, so editing the backing array is safe
	h.listeners[name] = slices.Delete(current, i, i+1)

	// Clean up empty hooks to prevent memory leaks
	if len(h.listeners[name]) == 0 {
		delete(h.listeners, name)
	}
	h.total--

	h.logger.Debug("unregistered",
		slog.String("hook", name),
		slog.String("listener", l.Name()),
	)
	return true
}

// HasListeners reports whether the hook has at least one listener.
func (h *Hooks[T]) HasListeners(name Key) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.listeners[name]) > 0
}

// Count returns the number of listeners registered on a hook.
func (h *Hooks[T]) Count(name Key) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.listeners[name])
}

// Listeners returns the listeners of a hook in dispatch order.
func (h *Hooks[T]) Listeners(name Key) []*Listener[T] {
	return h.snapshot(name)
}

// snapshot copies the listener set so dispatch can run without the lock.
func (h *Hooks[T]) snapshot(name Key) []*Listener[T] {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.listeners[name])
}

// Clear removes every listener and lifecycle record of a hook and returns
// how many listeners were removed. The page transition cleanup listener
// is kept.
func (h *Hooks[T]) Clear(name Key) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := len(h.listeners[name])
	delete(h.listeners, name)
	h.total -= count

	for reg := range h.once {
		if reg.name == name {
			delete(h.once, reg)
		}
	}
	for reg := range h.pageScoped {
		if reg.name == name {
			delete(h.pageScoped, reg)
		}
	}

	if name == PageTransitionStart {
		count--
		h.installTransition()
	}
	return count
}

// ClearAll removes every listener and lifecycle record and returns how many
// listeners were removed. The page transition cleanup listener is kept.
func (h *Hooks[T]) ClearAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.total - 1

	h.listeners = make(map[Key][]*Listener[T])
	h.once = make(map[registration[T]]struct{})
	h.pageScoped = make(map[registration[T]]struct{})
	h.total = 0
	h.installTransition()

	return count
}

// Metrics returns current registry metrics with thread-safe access.
// Registration gauges require the mutex; counters are read atomically.
func (h *Hooks[T]) Metrics() Metrics {
	h.mu.RLock()
	registered := int64(h.total)
	oneShot := int64(len(h.once))
	pageScoped := int64(len(h.pageScoped))
	h.mu.RUnlock()

	return Metrics{
		QueueDepth:          atomic.LoadInt64(&h.metrics.QueueDepth),
		QueueCapacity:       int64(cap(h.workers.tasks)),
		Fires:               atomic.LoadInt64(&h.metrics.Fires),
		ListenersInvoked:    atomic.LoadInt64(&h.metrics.ListenersInvoked),
		ListenerFailures:    atomic.LoadInt64(&h.metrics.ListenerFailures),
		PendingSettled:      atomic.LoadInt64(&h.metrics.PendingSettled),
		PendingFailed:       atomic.LoadInt64(&h.metrics.PendingFailed),
		PendingRejected:     atomic.LoadInt64(&h.metrics.PendingRejected),
		PendingExpired:      atomic.LoadInt64(&h.metrics.PendingExpired),
		RegisteredListeners: registered,
		OneShotPending:      oneShot,
		PageScopedPending:   pageScoped,
	}
}

// Close shuts the registry down. Queued pending action results are awaited
// before Close returns; later Register and Fire calls fail with
// ErrServiceClosed.
func (h *Hooks[T]) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	h.mu.Unlock()

	// Shutdown worker pool - this waits for queued results to settle
	h.workers.close()

	return nil
}

func listenerName[T any](l *Listener[T]) string {
	if l == nil {
		return "<nil>"
	}
	return l.Name()
}
