package hookbus

import "context"

// Broadcaster receives every fired action hook after its listeners were
// notified. It bridges hosts that still deliver events over an older
// broadcast mechanism.
type Broadcaster interface {
	Broadcast(ctx context.Context, name Key, data any)
}

// BroadcasterFunc adapts a function to the Broadcaster interface.
type BroadcasterFunc func(ctx context.Context, name Key, data any)

// Broadcast calls f(ctx, name, data).
func (f BroadcasterFunc) Broadcast(ctx context.Context, name Key, data any) {
	f(ctx, name, data)
}
