package hookbus

import "log/slog"

// DefaultDeprecations returns the table of retired hook names and their
// replacements. An empty replacement means no alternative exists.
func DefaultDeprecations() map[Key]Key {
	return map[Key]Key{
		"action:script.load":      "filter:script.load",
		"action:category.loaded":  "action:topics.loaded",
		"action:category.loading": "action:topics.loading",
		"action:composer.check":   "filter:composer.check",
	}
}

// Deprecation reports whether a hook name is retired and what replaces it.
func (h *Hooks[T]) Deprecation(name Key) (replacement Key, deprecated bool) {
	replacement, deprecated = h.deprecations[name]
	return replacement, deprecated
}

// advise warns about registrations on retired hook names. It never blocks
// or redirects the registration.
func (h *Hooks[T]) advise(name Key, l *Listener[T]) {
	replacement, ok := h.deprecations[name]
	if !ok {
		return
	}

	if replacement == "" {
		h.logger.Warn("hook is deprecated, there is no alternative",
			slog.String("hook", name),
			slog.String("listener", l.Name()),
		)
		return
	}

	h.logger.Warn("hook is deprecated, use the replacement instead",
		slog.String("hook", name),
		slog.String("replacement", replacement),
		slog.String("listener", l.Name()),
	)
}
