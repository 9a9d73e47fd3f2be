package ports

import "context"

// Deliverer pushes a bot message to the remote party out-of-band.
// The autofollow loop uses it for every turn except the last, which is
// returned to the caller as the transport's synchronous reply.
// Delivery is at-most-once; the engine does not retry.
type Deliverer interface {
	Deliver(ctx context.Context, sessionID, text string) error
}

// DelivererFunc adapts a function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, sessionID, text string) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, sessionID, text string) error {
	return f(ctx, sessionID, text)
}
