// Package worker owns the client's dispatch core: it resolves inbound
// requests to actions, runs exactly one action at a time, and drains the
// prioritized reply channel to the transport.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/action"
	"github.com/hacksh-LesMiddleMen/grr/pkg/config"
	"github.com/hacksh-LesMiddleMen/grr/pkg/internal/logfields"
	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"
	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
	"github.com/hacksh-LesMiddleMen/grr/pkg/queue"
	"github.com/hacksh-LesMiddleMen/grr/pkg/stats"
	"github.com/hacksh-LesMiddleMen/grr/pkg/transport"
	"github.com/hacksh-LesMiddleMen/grr/pkg/workgroup"

	"github.com/karlseguin/ccache/v3"
	"github.com/pkg/errors"
)

const (
	// maxQueuedReplies bounds the pending outbound queue.
	maxQueuedReplies = 1024

	// seenRequestTTL is how long a handled request is remembered for
	// duplicate suppression. Delivery is at-least-once; a redelivered
	// request inside this window is dropped instead of re-run.
	seenRequestTTL = 5 * time.Minute

	sampleInterval = 10 * time.Second
)

// Worker receives requests, dispatches them one at a time and reports
// replies back in priority order.
type Worker struct {
	log       logging.Logger
	transport transport.Transport
	registry  *action.Registry
	replies   *queue.Reply
	stats     *stats.Collector
	sampler   *stats.Sampler
	updater   *config.Updater
	seen      *ccache.Cache[struct{}]

	// heartbeat is the unix-nano time of the dispatch loop's last sign of
	// life, read by the watchdog notifier.
	heartbeat atomic.Int64
}

// New assembles a worker over the given transport and configuration.
func New(log logging.Logger, t transport.Transport, updater *config.Updater) *Worker {
	collector := stats.NewCollector()
	w := &Worker{
		log:       log,
		transport: t,
		replies:   queue.New(maxQueuedReplies),
		stats:     collector,
		updater:   updater,
		seen:      ccache.New(ccache.Configure[struct{}]().MaxSize(4096).ItemsToPrune(256)),
	}
	w.sampler = stats.NewSampler(
		log.WithField(logging.SubComponentField, "sampler"), collector, sampleInterval)
	w.registry = action.NewRegistry(action.Deps{
		Log:    log.WithField(logging.SubComponentField, "actions"),
		Config: updater,
		Stats:  collector,
	})
	w.touch()
	return w
}

// Stats exposes the collector so transports can account traffic bytes.
func (w *Worker) Stats() *stats.Collector {
	return w.stats
}

// LastHeartbeat reports when the dispatch loop last made progress.
func (w *Worker) LastHeartbeat() time.Time {
	return time.Unix(0, w.heartbeat.Load())
}

func (w *Worker) touch() {
	w.heartbeat.Store(time.Now().UnixNano())
}

// Run starts the dispatch and drain loops plus the usage sampler, blocking
// until the context is cancelled. On startup the worker announces itself on
// the startup well-known session.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Debug("starting")
	defer w.log.Debug("finished")

	w.announceStartup(ctx)

	group := workgroup.WithContext(ctx)
	group.Work(w.dispatchLoop)
	group.Work(w.drainLoop)
	group.Work(w.sampler.Run)
	return group.Wait()
}

// announceStartup dispatches SendStartupInfo outside any request cycle. The
// empty session marks the dispatch as unsolicited: no terminal status is
// reported anywhere.
func (w *Worker) announceStartup(ctx context.Context) {
	w.dispatch(ctx, &message.Request{Action: "SendStartupInfo"})
}

func (w *Worker) dispatchLoop(ctx context.Context) error {
	for {
		req, err := w.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.WithMessage(err, "receive failed")
		}
		w.touch()
		if w.duplicate(req) {
			w.log.WithFields(logfields.Request(req)).
				Warn("dropping redelivered request")
			continue
		}
		w.dispatch(ctx, req)
		w.touch()
	}
}

func (w *Worker) drainLoop(ctx context.Context) error {
	log := w.log.WithField(logging.SubComponentField, "drain")
	for {
		m, err := w.replies.Dequeue(ctx)
		if err != nil {
			return nil
		}
		if err := w.transport.Send(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Best-effort delivery; the server retries interest it
			// still has.
			log.WithFields(logfields.Message(m)).WithError(err).
				Error("could not send reply")
		}
	}
}

// duplicate records the request and reports whether it was already handled
// recently. Unsolicited internal dispatches carry no session and are never
// deduplicated.
func (w *Worker) duplicate(req *message.Request) bool {
	if req.SessionID == "" {
		return false
	}
	key := fmt.Sprintf("%s/%d", req.SessionID, req.RequestID)
	if item := w.seen.Get(key); item != nil && !item.Expired() {
		return true
	}
	w.seen.Set(key, struct{}{}, seenRequestTTL)
	return false
}

// dispatch resolves and runs one action to completion. Failures inside the
// action are caught here and reported as a terminal status; they never take
// the worker down. Terminal actions (Kill) exit the process themselves.
func (w *Worker) dispatch(ctx context.Context, req *message.Request) {
	log := w.log.WithFields(logfields.Request(req))

	reg, err := w.registry.Lookup(req.Action)
	if err != nil {
		log.Warn("request for unknown action")
		if req.SessionID != "" {
			e := w.emitterFor(req, action.Destination{})
			if err := e.EmitStatus(message.Status{Error: err.Error()}, message.PriorityNormal); err != nil {
				log.WithError(err).Error("could not report unknown action")
			}
		}
		return
	}

	if logging.Debuggable {
		log.Debug("dispatching")
	}

	e := w.emitterFor(req, reg.Dest)
	err = runRecovering(ctx, reg, req, e)

	if reg.Terminal {
		// The action ends the process on its own; nothing to report.
		return
	}
	if req.SessionID == "" {
		if err != nil {
			log.WithError(err).Error("unsolicited action failed")
		}
		return
	}

	status := message.Status{OK: err == nil}
	if err != nil {
		status.Error = err.Error()
		log.WithError(err).Error("action failed")
	}
	if err := e.EmitStatus(status, message.PriorityNormal); err != nil {
		log.WithError(err).Error("could not queue status reply")
	}
}

// runRecovering shields the dispatch loop from a panicking action.
func runRecovering(ctx context.Context, reg *action.Registration, req *message.Request, e action.Emitter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("action panicked: %v", r)
		}
	}()
	in := action.Input{Args: req.Args, TTL: req.TTL}
	return reg.Run(ctx, in, e)
}
