// Package transport defines the boundary to the wire. Encryption,
// authentication and encoding live on the far side of this interface; the
// worker only receives requests and hands over drained replies.
package transport

import (
	"context"

	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
)

// Transport is implemented by the component carrying messages to and from
// the server.
type Transport interface {
	// Receive blocks until the next inbound request or ctx is done.
	Receive(ctx context.Context) (*message.Request, error)
	// Send forwards one drained reply. Replies arrive here in the reply
	// channel's delivery order and must be forwarded without reordering.
	Send(ctx context.Context, m *message.Message) error
}
