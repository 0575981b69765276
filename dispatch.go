package hookbus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Fire dispatches data to the listeners of a hook using the strategy named
// by the hook's prefix:
//
//   - filter: listeners run one after another in registration order, each
//     receiving the previous listener's output. Fire returns the output of
//     the last successful listener.
//   - action: every listener receives data. Fire returns data once every
//     listener has been started; pending results are settled in the
//     background.
//   - static: every listener receives data concurrently. Fire returns data
//     after all of them have settled.
//
// Any other prefix dispatches nothing and returns the zero value.
//
// Listener failures never surface here. The only error is ErrServiceClosed.
// Cancelling ctx does not cut dispatch short: listeners see a context that
// ends only with the listener timeout.
//
// The listener set is snapshotted when Fire starts. One-shot listeners in
// that snapshot are removed after dispatch; one-shot listeners registered
// while the fire runs wait for the next one.
func (h *Hooks[T]) Fire(ctx context.Context, name Key, data T) (T, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		var zero T
		return zero, ErrServiceClosed
	}
	listeners := slices.Clone(h.listeners[name])
	once := h.onceRecords(name)
	h.mu.RUnlock()

	kind := ParseKind(name)
	atomic.AddInt64(&h.metrics.Fires, 1)

	ctx, span := h.telemetry.startFire(ctx, name, kind)
	defer span.End()
	start := h.clock.Now()

	// Dispatch runs to completion regardless of the caller
	ctx = context.WithoutCancel(ctx)

	var result T
	if fire, ok := h.strategies[kind]; ok {
		if len(listeners) > 0 {
			h.telemetry.annotate(ctx, len(listeners))
		}
		result = fire(ctx, name, listeners, data)
	} else {
		h.logger.Debug("hook kind not recognized, nothing dispatched",
			slog.String("hook", name),
		)
	}

	h.pruneOnce(once)
	h.telemetry.finishFire(ctx, span, name, kind, h.clock.Now().Sub(start))

	return result, nil
}

// fireFilter threads the payload through the listeners in order. A failed
// listener is skipped: the next one receives what the failed one received.
func (h *Hooks[T]) fireFilter(ctx context.Context, name Key, listeners []*Listener[T], data T) T {
	for _, l := range listeners {
		next, err := h.call(ctx, name, l, data)
		if err != nil {
			h.onListenerError(ctx, name, l, data, err)
			continue
		}
		data = next
	}
	return data
}

// fireAction starts every listener with the same payload and returns
// without waiting for pending results.
func (h *Hooks[T]) fireAction(ctx context.Context, name Key, listeners []*Listener[T], data T) T {
	for _, l := range listeners {
		lctx, cancel := h.listenerContext(ctx)
		res, err := h.invoke(lctx, name, l, data)
		if err != nil {
			cancel()
			h.onListenerError(ctx, name, l, data, err)
			continue
		}
		if !res.IsPending() {
			cancel()
			if _, err := res.Await(ctx); err != nil {
				h.onListenerError(ctx, name, l, data, err)
			}
			continue
		}

		task := settleTask[T]{ctx: lctx, cancel: cancel, name: name, listener: l, data: data, result: res}
		if err := h.workers.submit(task); err != nil {
			h.logger.Warn("pending action result not tracked",
				slog.String("hook", name),
				slog.String("listener", l.Name()),
				slog.String("error", err.Error()),
			)
			go func() {
				defer cancel()
				select {
				case <-res.future.Done():
				case <-lctx.Done():
				}
			}()
		}
	}

	h.broadcast(ctx, name, data)
	return data
}

// fireStatic runs every listener concurrently and waits until all of them
// have settled. Listener values are discarded.
func (h *Hooks[T]) fireStatic(ctx context.Context, name Key, listeners []*Listener[T], data T) T {
	var g errgroup.Group
	if h.parallelism > 0 {
		g.SetLimit(h.parallelism)
	}
	for _, l := range listeners {
		g.Go(func() error {
			if _, err := h.call(ctx, name, l, data); err != nil {
				h.onListenerError(ctx, name, l, data, err)
			}
			return nil
		})
	}
	_ = g.Wait() // failures are contained per listener

	return data
}

// call invokes a listener and waits for its result, bounded by the
// listener timeout.
func (h *Hooks[T]) call(ctx context.Context, name Key, l *Listener[T], data T) (T, error) {
	ctx, cancel := h.listenerContext(ctx)
	defer cancel()

	res, err := h.invoke(ctx, name, l, data)
	if err != nil {
		var zero T
		return zero, err
	}
	return res.Await(ctx)
}

// listenerContext derives the context of one listener invocation. The
// context ends when the listener timeout expires or cancel is called.
func (h *Hooks[T]) listenerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return h.clock.WithTimeout(ctx, h.timeout)
	}
	return ctx, func() {}
}

// invoke runs the listener function, converting a panic into an error.
func (h *Hooks[T]) invoke(ctx context.Context, name Key, l *Listener[T], data T) (res Result[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("listener panicked",
				slog.String("hook", name),
				slog.String("listener", l.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %v", ErrListenerPanicked, r)
		}
	}()

	atomic.AddInt64(&h.metrics.ListenersInvoked, 1)
	return l.fn(ctx, data), nil
}

// onListenerError logs and records a contained listener failure.
func (h *Hooks[T]) onListenerError(ctx context.Context, name Key, l *Listener[T], data T, err error) {
	atomic.AddInt64(&h.metrics.ListenerFailures, 1)
	h.logger.Warn("listener failed",
		slog.String("hook", name),
		slog.String("listener", l.Name()),
		slog.Any("payload", data),
		slog.String("error", err.Error()),
	)
	h.telemetry.recordFailure(ctx, name, l.Name(), err)
}

// reportSettled receives failures of pending action results from the
// settle workers.
func (h *Hooks[T]) reportSettled(task settleTask[T], err error) {
	h.onListenerError(task.ctx, task.name, task.listener, task.data, err)
}

// broadcast republishes an action on the legacy bridge, if one is attached.
func (h *Hooks[T]) broadcast(ctx context.Context, name Key, data T) {
	if h.broadcaster == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("legacy broadcast panicked",
				slog.String("hook", name),
				slog.Any("panic", r),
			)
		}
	}()

	h.broadcaster.Broadcast(ctx, name, data)
}
