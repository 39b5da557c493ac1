// Package queue implements the outbound reply channel: a bounded priority
// queue sitting between the dispatch goroutine (producer) and the transport
// drain goroutine (consumer).
package queue

import (
	"container/heap"
	"context"
	"sync"

	"github.com/hacksh-LesMiddleMen/grr/pkg/message"

	"github.com/pkg/errors"
)

// ErrFull is returned when the queue is at its configured maximum.
var ErrFull = errors.New("reply queue is full")

// Reply orders pending outbound messages for transport. Higher priority
// messages are dequeued before any lower priority message still pending,
// regardless of enqueue order. Messages of equal priority keep their enqueue
// order.
type Reply struct {
	mu    sync.Mutex
	items replyHeap
	max   int
	seq   uint64
	// avail is signalled (non-blocking) on enqueue to wake a waiting
	// consumer.
	avail chan struct{}
}

// New creates a reply queue holding at most max pending messages.
func New(max int) *Reply {
	return &Reply{
		max:   max,
		avail: make(chan struct{}, 1),
	}
}

// Enqueue adds a message for transport. The message is forwarded untouched;
// in particular TTL and addressing are preserved as given.
func (r *Reply) Enqueue(m *message.Message) error {
	r.mu.Lock()
	if r.max > 0 && r.items.Len() >= r.max {
		r.mu.Unlock()
		return ErrFull
	}
	r.seq++
	heap.Push(&r.items, &pending{msg: m, seq: r.seq})
	r.mu.Unlock()

	select {
	case r.avail <- struct{}{}:
	default:
	}
	return nil
}

// Dequeue removes and returns the highest priority pending message, blocking
// until one is available or the context is done.
func (r *Reply) Dequeue(ctx context.Context) (*message.Message, error) {
	for {
		r.mu.Lock()
		if r.items.Len() > 0 {
			p := heap.Pop(&r.items).(*pending)
			r.mu.Unlock()
			return p.msg, nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.avail:
		}
	}
}

// Len reports the number of pending messages.
func (r *Reply) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Len()
}

type pending struct {
	msg *message.Message
	seq uint64
}

type replyHeap []*pending

func (h replyHeap) Len() int { return len(h) }

func (h replyHeap) Less(i, j int) bool {
	if h[i].msg.Priority != h[j].msg.Priority {
		return h[i].msg.Priority > h[j].msg.Priority
	}
	return h[i].seq < h[j].seq
}

func (h replyHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *replyHeap) Push(x interface{}) {
	*h = append(*h, x.(*pending))
}

func (h *replyHeap) Pop() interface{} {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}
