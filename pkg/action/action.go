// Package action implements the closed set of named work units a server may
// request from this client, and the registry resolving request names to
// them.
package action

import (
	"context"
	"os"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/config"
	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"
	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
	"github.com/hacksh-LesMiddleMen/grr/pkg/stats"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// ErrUnknownAction is returned by Lookup for names outside the registry.
var ErrUnknownAction = errors.New("unknown action")

// KillExitCode is the reserved exit code of an intentional self-kill. The
// external supervisor uses it to tell a requested kill from a crash.
const KillExitCode = 242

// Input carries the decoded request arguments into an action.
type Input struct {
	Args map[string]interface{}
	// TTL is the requested validity horizon for emitted replies, zero when
	// unset.
	TTL int
}

// Integer reads an integer argument, tolerating the loose typing of decoded
// wire payloads. Missing or zero values yield def.
func (in Input) Integer(key string, def int64) int64 {
	v, ok := in.Args[key]
	if !ok {
		return def
	}
	var n int64
	if err := mapstructure.WeakDecode(v, &n); err != nil || n == 0 {
		return def
	}
	return n
}

// String reads a string argument, or def when absent.
func (in Input) String(key string, def string) string {
	v, ok := in.Args[key]
	if !ok {
		return def
	}
	var s string
	if err := mapstructure.WeakDecode(v, &s); err != nil {
		return def
	}
	return s
}

// Emitter is the reply path handed to a running action. Where emitted
// replies are addressed is fixed by the action's registration, not chosen at
// emit time.
type Emitter interface {
	// Emit enqueues one payload-bearing reply.
	Emit(payload interface{}) error
	// EmitStatus enqueues a status reply at the given priority. Actions
	// normally never call this; the dispatcher emits the terminal status.
	// Kill is the exception, it jumps the queue before dying.
	EmitStatus(status message.Status, priority message.Priority) error
}

// RunFunc is the body of an action. It emits zero or more replies and
// returns an error only for failures the dispatcher should report.
type RunFunc func(ctx context.Context, in Input, out Emitter) error

// Destination fixes the addressing of an action's emitted replies at
// registration time. The zero value addresses the triggering request.
type Destination struct {
	// WellKnownSession, when set, routes every emitted reply to this
	// reserved session instead of the requester.
	WellKnownSession string
	// Priority for well-known replies; requester replies are always
	// PriorityNormal.
	Priority message.Priority
	// RequireFastpoll is forwarded onto well-known replies.
	RequireFastpoll bool
}

// Registration binds a name to a run function and its reply destination.
type Registration struct {
	Name string
	Run  RunFunc
	Dest Destination
	// Terminal marks actions that end the process on success; the
	// dispatcher must not expect to emit a status after them.
	Terminal bool
}

// Proc terminates the running process. Split out so Kill is testable.
type Proc interface {
	Exit(code int)
}

// OSProc is the Proc used outside of tests.
type OSProc struct{}

func (OSProc) Exit(code int) { os.Exit(code) }

// Deps are the worker-owned collaborators actions may read or, narrowly,
// act through.
type Deps struct {
	Log     logging.Logger
	Config  *config.Updater
	Stats   *stats.Collector
	Proc    Proc
	Sleep   func(time.Duration)
	// KillGrace is how long Kill waits for the transport to drain its
	// queue-jumped status before exiting.
	KillGrace time.Duration
}

func (d *Deps) defaults() {
	if d.Proc == nil {
		d.Proc = OSProc{}
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	if d.KillGrace == 0 {
		d.KillGrace = 10 * time.Second
	}
}
