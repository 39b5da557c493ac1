package transport

import (
	"context"

	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
)

var _ Transport = (*Local)(nil)

// Local is an in-memory transport. It backs tests and the standalone run
// mode; requests are fed through Submit and sent replies appear on Outbox in
// delivery order.
type Local struct {
	requests chan *message.Request
	outbox   chan *message.Message
}

func NewLocal(buffer int) *Local {
	return &Local{
		requests: make(chan *message.Request, buffer),
		outbox:   make(chan *message.Message, buffer),
	}
}

// Submit feeds an inbound request.
func (l *Local) Submit(r *message.Request) {
	l.requests <- r
}

// Outbox exposes sent replies in the order the worker drained them.
func (l *Local) Outbox() <-chan *message.Message {
	return l.outbox
}

func (l *Local) Receive(ctx context.Context) (*message.Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-l.requests:
		return r, nil
	}
}

func (l *Local) Send(ctx context.Context, m *message.Message) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.outbox <- m:
		return nil
	}
}
