// Package message holds the request and reply types exchanged with the
// server, along with the fixed addressing vocabulary: priorities, message
// types and the reserved well-known sessions.
package message

// Priority orders pending replies for transport. A reply with a higher
// priority is drained ahead of every lower-priority reply still pending,
// regardless of enqueue order.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// Type distinguishes payload-bearing replies from terminal status replies.
type Type int

const (
	TypeMessage Type = 0
	TypeStatus  Type = 1
)

// Request is a named unit of work sent by the server.
type Request struct {
	SessionID string
	RequestID uint64
	Action    string
	// Args is the decoded request payload. Field coercion into typed
	// action arguments happens at the action boundary.
	Args map[string]interface{}
	// TTL optionally bounds how long emitted replies remain valid.
	TTL int
}

// Message is a single outbound reply.
type Message struct {
	SessionID  string
	RequestID  uint64
	ResponseID uint64
	Priority   Priority
	Type       Type
	// RequireFastpoll asks the transport to expedite delivery. Unsolicited
	// reports relax this.
	RequireFastpoll bool
	// TTL is forwarded unmodified; enforcement belongs to the receiver.
	TTL     int
	Payload interface{}
}

// Status is the payload of a terminal TypeStatus reply.
type Status struct {
	OK    bool
	Error string
}
