// Package hookbus provides an in-process extension-point bus that lets
// independently authored plugins observe and transform host behavior at
// named hooks.
//
// Every hook name carries its dispatch kind as a prefix:
//   - "filter:<ns>" runs listeners as a transform chain in registration order
//   - "action:<ns>" notifies every listener and returns without waiting
//   - "static:<ns>" runs every listener concurrently and waits for all of them
//
// Names with any other prefix may be registered and fired, but firing them
// dispatches nothing.
//
// Basic Usage:
//
//	hooks := hookbus.New[Post]()
//	defer hooks.Close()
//
//	sanitize := hookbus.Func("sanitize", func(ctx context.Context, p Post) (Post, error) {
//		p.Body = policy.Sanitize(p.Body)
//		return p, nil
//	})
//	if err := hooks.Register("filter:post.save", sanitize); err != nil {
//		return err
//	}
//
//	post, err = hooks.Fire(ctx, "filter:post.save", post)
//
// Listener Lifecycle:
//
//	// Removed after the first fire of its hook
//	hooks.RegisterOnce("action:post.saved", listener)
//
//	// Removed on the next page transition
//	hooks.RegisterPageScoped("action:composer.open", listener)
//
//	// The navigation layer announces every transition
//	hooks.Fire(ctx, hookbus.PageTransitionStart, page)
//
// Failure Containment:
//
// A listener that returns an error, panics, or exceeds the configured
// timeout is logged and skipped. In a filter chain the next listener
// receives the payload the failing listener was given. Fire only returns an
// error when the registry itself was closed.
package hookbus

import "strings"

// Key represents a hook name used in registration and dispatch.
//
//	const (
//		PostSave  Key = "filter:post.save"
//		PostSaved Key = "action:post.saved"
//	)
type Key = string

// PageTransitionStart is the reserved hook the navigation layer fires on
// every page change. Firing it unregisters every page-scoped listener.
const PageTransitionStart Key = "action:page.transition.start"

// Kind is the dispatch strategy encoded in a hook name's prefix.
type Kind int

// Dispatch kinds.
const (
	KindUnknown Kind = iota
	KindFilter
	KindAction
	KindStatic
)

// String returns the prefix form of the kind.
func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindAction:
		return "action"
	case KindStatic:
		return "static"
	default:
		return "unknown"
	}
}

// ParseKind reads the dispatch kind from the text before the first colon.
// A name without a recognized prefix yields KindUnknown.
func ParseKind(name Key) Kind {
	prefix, _, _ := strings.Cut(name, ":")
	switch prefix {
	case "filter":
		return KindFilter
	case "action":
		return KindAction
	case "static":
		return KindStatic
	default:
		return KindUnknown
	}
}
