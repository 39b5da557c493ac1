package message

import "fmt"

// Well-known sessions are fixed destinations for replies that no request
// solicited. The set is closed at build time; requesters cannot allocate
// session IDs inside the reserved namespace.

// WellKnownPrefix is the reserved session namespace.
const WellKnownPrefix = "W:"

const (
	// StartupSessionID receives the client's boot announcement.
	StartupSessionID = WellKnownPrefix + "Startup"
	// StatsSessionID receives unsolicited resource usage reports.
	StatsSessionID = WellKnownPrefix + "Stats"
)

var wellKnownSessions = map[string]struct{}{
	StartupSessionID: {},
	StatsSessionID:   {},
}

// IsReserved reports whether the session ID lies inside the namespace that
// requesters must never use.
func IsReserved(sessionID string) bool {
	return len(sessionID) >= len(WellKnownPrefix) &&
		sessionID[:len(WellKnownPrefix)] == WellKnownPrefix
}

// IsWellKnown reports whether the session ID names a registered well-known
// destination.
func IsWellKnown(sessionID string) bool {
	_, ok := wellKnownSessions[sessionID]
	return ok
}

// WellKnown builds a reply addressed to a registered well-known session.
// Request and response IDs are zero: the reply answers nothing. Passing an
// unregistered session is a programming error, the set is fixed.
func WellKnown(sessionID string, priority Priority, payload interface{}) *Message {
	if !IsWellKnown(sessionID) {
		panic(fmt.Sprintf("message: %q is not a registered well-known session", sessionID))
	}
	return &Message{
		SessionID:       sessionID,
		RequestID:       0,
		ResponseID:      0,
		Priority:        priority,
		Type:            TypeMessage,
		RequireFastpoll: false,
		Payload:         payload,
	}
}
