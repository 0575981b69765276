package hookbus

import "log/slog"

// RegisterOnce attaches a listener that is removed right after the next
// fire of the hook, whether the listener succeeded or not.
func (h *Hooks[T]) RegisterOnce(name Key, l *Listener[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.register(name, l); err != nil {
		return err
	}
	h.once[registration[T]{name: name, listener: l}] = struct{}{}
	return nil
}

// One is an alias for RegisterOnce.
func (h *Hooks[T]) One(name Key, l *Listener[T]) error {
	return h.RegisterOnce(name, l)
}

// RegisterPageScoped attaches a listener that is removed the next time
// PageTransitionStart fires. Use it for bindings that belong to a single
// rendered page so they do not pile up across navigations.
func (h *Hooks[T]) RegisterPageScoped(name Key, l *Listener[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.register(name, l); err != nil {
		return err
	}
	h.pageScoped[registration[T]{name: name, listener: l}] = struct{}{}
	return nil
}

// OnPage is an alias for RegisterPageScoped.
func (h *Hooks[T]) OnPage(name Key, l *Listener[T]) error {
	return h.RegisterPageScoped(name, l)
}

// RegisterOncePageScoped attaches a listener that runs at most once and is
// removed no later than the next page transition.
func (h *Hooks[T]) RegisterOncePageScoped(name Key, l *Listener[T]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.register(name, l); err != nil {
		return err
	}
	reg := registration[T]{name: name, listener: l}
	h.once[reg] = struct{}{}
	h.pageScoped[reg] = struct{}{}
	return nil
}

// onceRecords returns the one-shot records of a hook. Callers hold h.mu.
func (h *Hooks[T]) onceRecords(name Key) []registration[T] {
	var records []registration[T]
	for reg := range h.once {
		if reg.name == name {
			records = append(records, reg)
		}
	}
	return records
}

// pruneOnce removes one-shot listeners taken with the snapshot of a fire.
// Records already dropped by Clear or ClearAll are skipped.
func (h *Hooks[T]) pruneOnce(records []registration[T]) {
	if len(records) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, reg := range records {
		if _, ok := h.once[reg]; !ok {
			continue
		}
		h.unregister(reg.name, reg.listener)
		delete(h.once, reg)
		h.logger.Debug("one-shot listener removed",
			slog.String("hook", reg.name),
			slog.String("listener", reg.listener.Name()),
		)
	}
}

// prunePageScoped removes every page-scoped listener. It runs as the
// persistent listener on PageTransitionStart.
func (h *Hooks[T]) prunePageScoped() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for reg := range h.pageScoped {
		h.unregister(reg.name, reg.listener)
		delete(h.pageScoped, reg)
	}
	h.logger.Debug("page-scoped listeners removed")
}
