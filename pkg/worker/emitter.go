package worker

import (
	"github.com/hacksh-LesMiddleMen/grr/pkg/action"
	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
	"github.com/hacksh-LesMiddleMen/grr/pkg/queue"
)

var _ action.Emitter = (*emitter)(nil)

// emitter is the per-dispatch reply path. Addressing is fixed by the
// action's registered destination; response numbering within the request's
// session increases in emission order, with the terminal status taking the
// next number.
type emitter struct {
	replies *queue.Reply
	req     *message.Request
	dest    action.Destination
	next    uint64
}

func (w *Worker) emitterFor(req *message.Request, dest action.Destination) *emitter {
	return &emitter{
		replies: w.replies,
		req:     req,
		dest:    dest,
	}
}

func (e *emitter) Emit(payload interface{}) error {
	if e.dest.WellKnownSession != "" {
		m := message.WellKnown(e.dest.WellKnownSession, e.dest.Priority, payload)
		m.RequireFastpoll = e.dest.RequireFastpoll
		m.TTL = e.req.TTL
		return e.replies.Enqueue(m)
	}
	e.next++
	return e.replies.Enqueue(&message.Message{
		SessionID:       e.req.SessionID,
		RequestID:       e.req.RequestID,
		ResponseID:      e.next,
		Priority:        message.PriorityNormal,
		Type:            message.TypeMessage,
		RequireFastpoll: true,
		TTL:             e.req.TTL,
		Payload:         payload,
	})
}

// EmitStatus always answers the triggering request, even for actions whose
// payload replies go to a well-known session.
func (e *emitter) EmitStatus(status message.Status, priority message.Priority) error {
	e.next++
	return e.replies.Enqueue(&message.Message{
		SessionID:       e.req.SessionID,
		RequestID:       e.req.RequestID,
		ResponseID:      e.next,
		Priority:        priority,
		Type:            message.TypeStatus,
		RequireFastpoll: true,
		Payload:         status,
	})
}
