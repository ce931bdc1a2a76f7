package bridge

import (
	"context"

	"agentbridge/pkg/wire"
)

// Sender is the narrow send capability the bridge grants a handler for the
// duration of one task. Tools that stream out-of-band progress (the chess
// battle pushing board updates move by move) go through this instead of
// holding any transport handle themselves; the write is paced exactly like
// a reply.
type Sender func(wire.Envelope) error

type senderKey struct{}

// WithSender returns a context carrying a send capability.
func WithSender(ctx context.Context, send Sender) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if send == nil {
		return ctx
	}

	return context.WithValue(ctx, senderKey{}, send)
}

// SenderFromContext returns the context-carried send capability, when
// present. Handlers invoked outside a bridge (the local agent CLI) simply
// see none and skip streaming.
func SenderFromContext(ctx context.Context) (Sender, bool) {
	if ctx == nil {
		return nil, false
	}

	send, ok := ctx.Value(senderKey{}).(Sender)
	if !ok || send == nil {
		return nil, false
	}

	return send, true
}
