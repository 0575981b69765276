package hookbus

import (
	"context"
	"fmt"
)

// ListenerFunc is the behavior attached to a hook. It receives the payload
// and produces either an immediate value or a pending Future.
//
// For filter hooks the produced value is the transformed payload. Action and
// static hooks ignore the value, although static dispatch still waits for a
// pending result to settle.
type ListenerFunc[T any] func(ctx context.Context, data T) Result[T]

// Listener is a handle to a unit of behavior that can be registered on
// hooks. Listeners are identified by pointer: registering the same handle
// twice on one hook is a no-op, while two handles wrapping the same
// function are distinct listeners.
//
// Example:
//
//	audit := hookbus.Observer("audit", func(ctx context.Context, p Post) error {
//	    return auditLog.Record(ctx, p.ID)
//	})
//	hooks.Register("action:post.saved", audit)
//	defer hooks.Unregister("action:post.saved", audit)
type Listener[T any] struct {
	name string
	fn   ListenerFunc[T]
}

// NewListener creates a listener handle. The name only identifies the
// listener in logs, spans and deprecation warnings.
func NewListener[T any](name string, fn ListenerFunc[T]) *Listener[T] {
	return &Listener[T]{name: name, fn: fn}
}

// Func creates a listener from a synchronous transform.
func Func[T any](name string, fn func(context.Context, T) (T, error)) *Listener[T] {
	return NewListener(name, func(ctx context.Context, data T) Result[T] {
		out, err := fn(ctx, data)
		if err != nil {
			return Fail[T](err)
		}
		return Value(out)
	})
}

// Async creates a listener whose transform runs on its own goroutine. The
// dispatcher receives a pending result immediately.
func Async[T any](name string, fn func(context.Context, T) (T, error)) *Listener[T] {
	return NewListener(name, func(ctx context.Context, data T) Result[T] {
		return Pending(Go(ctx, func(ctx context.Context) (T, error) {
			return fn(ctx, data)
		}))
	})
}

// Observer creates a listener that only performs a side effect. It passes
// the payload through unchanged, so it is also a neutral link in a filter
// chain.
func Observer[T any](name string, fn func(context.Context, T) error) *Listener[T] {
	return NewListener(name, func(ctx context.Context, data T) Result[T] {
		if err := fn(ctx, data); err != nil {
			return Fail[T](err)
		}
		return Value(data)
	})
}

// Name returns the listener name, or "anonymous listener" when none was given.
func (l *Listener[T]) Name() string {
	if l.name == "" {
		return "anonymous listener"
	}
	return l.name
}

// Result is the outcome of a listener invocation: an immediate value, an
// immediate failure, or a pending Future.
type Result[T any] struct {
	value  T
	err    error
	future *Future[T]
}

// Value returns an immediate successful result.
func Value[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail returns an immediate failed result.
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Pending returns a result that settles when f does. A nil future settles
// immediately with the zero value.
func Pending[T any](f *Future[T]) Result[T] {
	return Result[T]{future: f}
}

// IsPending reports whether the result still has to be awaited.
func (r Result[T]) IsPending() bool {
	return r.future != nil
}

// Await returns the value of the result, joining the future if pending.
func (r Result[T]) Await(ctx context.Context) (T, error) {
	if r.future != nil {
		return r.future.Await(ctx)
	}
	return r.value, r.err
}

// Future is a value computed on another goroutine.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns its Future. A panic in fn
// settles the future with ErrListenerPanicked.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("%w: %v", ErrListenerPanicked, r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()
	return f
}

// Done is closed once the future has settled.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx ends, whichever is first.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
