package core

import (
	"context"

	"github.com/chilimannen/websocket-messaging-persistence-nodejs/internal/proto"
)

// Sender writes one response payload back to the originating connection.
type Sender interface {
	Send(ctx context.Context, payload any) error
}

// HandlerFunc processes one parsed envelope and may send a response
// through the originating connection's sender.
type HandlerFunc func(ctx context.Context, s Sender, env *proto.Envelope)

// Router maps an action identifier to its handler. It is built once at
// startup and never written afterwards, so concurrent reads need no
// locking.
type Router map[string]HandlerFunc

// Dispatch routes the envelope to its handler. An action with no
// registered handler is a deliberate no-op, not an error.
func (r Router) Dispatch(ctx context.Context, s Sender, env *proto.Envelope) {
	if handler, ok := r[env.Action]; ok {
		handler(ctx, s, env)
	}
}
