package worker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/action"
	"github.com/hacksh-LesMiddleMen/grr/pkg/config"
	"github.com/hacksh-LesMiddleMen/grr/pkg/internal/testoutput"
	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"
	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
	"github.com/hacksh-LesMiddleMen/grr/pkg/transport"

	"gotest.tools/v3/assert"
)

type testProc struct {
	exited   bool
	exitCode int
}

func (p *testProc) Exit(code int) {
	p.exited = true
	p.exitCode = code
}

type testHooks struct {
	Proc  *testProc
	Slept []time.Duration
}

func testWorker(t *testing.T) (*Worker, *transport.Local, *testHooks) {
	log := testoutput.Logger(t, logging.New("worker"))
	updater := config.NewUpdater(log, config.Default(), nil)
	tr := transport.NewLocal(64)
	w := New(log, tr, updater)

	// Swap in inert process control so Kill cannot take the test run down.
	hooks := &testHooks{Proc: &testProc{}}
	w.registry = action.NewRegistry(action.Deps{
		Log:    log,
		Config: updater,
		Stats:  w.stats,
		Proc:   hooks.Proc,
		Sleep: func(d time.Duration) {
			hooks.Slept = append(hooks.Slept, d)
		},
	})
	return w, tr, hooks
}

func pending(t *testing.T, w *Worker) []*message.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var out []*message.Message
	for w.replies.Len() > 0 {
		m, err := w.replies.Dequeue(ctx)
		assert.NilError(t, err)
		out = append(out, m)
	}
	return out
}

func TestDispatchGetHostname(t *testing.T) {
	w, _, _ := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 7, Action: "GetHostname",
	})

	msgs := pending(t, w)
	assert.Equal(t, len(msgs), 2)

	hostname, err := os.Hostname()
	assert.NilError(t, err)
	assert.Equal(t, msgs[0].SessionID, "session-1")
	assert.Equal(t, msgs[0].RequestID, uint64(7))
	assert.Equal(t, msgs[0].ResponseID, uint64(1))
	assert.Equal(t, msgs[0].Type, message.TypeMessage)
	assert.Equal(t, msgs[0].Payload.(action.HostnameReply).Hostname, hostname)

	// Terminal status takes the next response number.
	assert.Equal(t, msgs[1].ResponseID, uint64(2))
	assert.Equal(t, msgs[1].Type, message.TypeStatus)
	assert.Equal(t, msgs[1].Payload.(message.Status).OK, true)
}

func TestDispatchUnknownAction(t *testing.T) {
	w, _, _ := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 1, Action: "DeleteEverything",
	})

	msgs := pending(t, w)
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, msgs[0].Type, message.TypeStatus)
	status := msgs[0].Payload.(message.Status)
	assert.Equal(t, status.OK, false)
	assert.Equal(t, status.Error, action.ErrUnknownAction.Error())
}

func TestDispatchUpdateConfig(t *testing.T) {
	w, _, _ := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 1, Action: "UpdateConfig",
		Args: map[string]interface{}{
			"poll_min":        5,
			"arbitrary_field": "x",
		},
	})

	msgs := pending(t, w)
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, msgs[0].Payload.(message.Status).OK, true)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 2, Action: "GetConfig",
	})
	msgs = pending(t, w)
	cfg := msgs[0].Payload.(config.Config)
	assert.Equal(t, cfg.PollMin, float64(5))
}

func TestDispatchSendStartupInfo(t *testing.T) {
	w, _, _ := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 3, Action: "SendStartupInfo", TTL: 30,
	})

	msgs := pending(t, w)
	assert.Equal(t, len(msgs), 2)

	// The announcement goes to the well-known startup session, not to the
	// requester, and carries the requested TTL.
	var announcement, status *message.Message
	for _, m := range msgs {
		switch m.Type {
		case message.TypeMessage:
			announcement = m
		case message.TypeStatus:
			status = m
		}
	}
	assert.Assert(t, announcement != nil)
	assert.Equal(t, announcement.SessionID, message.StartupSessionID)
	assert.Equal(t, announcement.RequestID, uint64(0))
	assert.Equal(t, announcement.ResponseID, uint64(0))
	assert.Equal(t, announcement.TTL, 30)
	assert.Equal(t, announcement.RequireFastpoll, false)

	assert.Assert(t, status != nil)
	assert.Equal(t, status.SessionID, "session-1")
}

func TestDispatchGetClientStatsAuto(t *testing.T) {
	w, _, _ := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 4, Action: "GetClientStatsAuto",
	})

	msgs := pending(t, w)
	var report *message.Message
	for _, m := range msgs {
		if m.Type == message.TypeMessage {
			report = m
		}
	}
	assert.Assert(t, report != nil)
	assert.Equal(t, report.SessionID, message.StatsSessionID)
	assert.Equal(t, report.Priority, message.PriorityLow)
	assert.Equal(t, report.RequireFastpoll, false)
}

func TestDispatchKill(t *testing.T) {
	w, _, hooks := testWorker(t)

	w.dispatch(context.Background(), &message.Request{
		SessionID: "session-1", RequestID: 5, Action: "Kill",
	})

	// Exactly one status, queue-jumped, and no trailing dispatcher status:
	// the action is terminal.
	msgs := pending(t, w)
	assert.Equal(t, len(msgs), 1)
	assert.Equal(t, msgs[0].Type, message.TypeStatus)
	assert.Equal(t, msgs[0].Priority, message.PriorityHigh+1)
	assert.Equal(t, msgs[0].Payload.(message.Status).OK, true)

	assert.Check(t, hooks.Proc.exited)
	assert.Equal(t, hooks.Proc.exitCode, action.KillExitCode)
	// The grace wait for transport drain happened before the exit.
	assert.Equal(t, len(hooks.Slept), 1)
}

func TestDuplicateRequestSuppressed(t *testing.T) {
	w, _, _ := testWorker(t)

	req := &message.Request{SessionID: "session-1", RequestID: 9, Action: "GetHostname"}
	assert.Check(t, !w.duplicate(req))
	assert.Check(t, w.duplicate(req))

	// Unsolicited internal dispatches are never deduplicated.
	internal := &message.Request{Action: "SendStartupInfo"}
	assert.Check(t, !w.duplicate(internal))
	assert.Check(t, !w.duplicate(internal))
}

func TestRunRecoveringCatchesPanic(t *testing.T) {
	reg := &action.Registration{
		Name: "Panics",
		Run: func(context.Context, action.Input, action.Emitter) error {
			panic("boom")
		},
	}
	err := runRecovering(context.Background(), reg, &message.Request{}, nil)
	assert.ErrorContains(t, err, "boom")
}

func TestRunServesRequestsInOrder(t *testing.T) {
	w, tr, _ := testWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The worker announces itself before serving.
	first := <-tr.Outbox()
	assert.Equal(t, first.SessionID, message.StartupSessionID)
	assert.Equal(t, first.Payload.(action.StartupReply).ClientInfo.ClientName != "", true)

	tr.Submit(&message.Request{SessionID: "session-1", RequestID: 1, Action: "GetHostname"})

	reply := <-tr.Outbox()
	assert.Equal(t, reply.Type, message.TypeMessage)
	status := <-tr.Outbox()
	assert.Equal(t, status.Type, message.TypeStatus)

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestBusyHangStallsDispatch(t *testing.T) {
	if testing.Short() {
		t.Skip("busy-wait test")
	}
	w, tr, _ := testWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	<-tr.Outbox() // startup announcement

	start := time.Now()
	tr.Submit(&message.Request{
		SessionID: "session-1", RequestID: 1, Action: "BusyHang",
		Args: map[string]interface{}{"integer": 1},
	})
	tr.Submit(&message.Request{SessionID: "session-1", RequestID: 2, Action: "GetHostname"})

	// BusyHang's own status comes first, only after the spin.
	first := <-tr.Outbox()
	assert.Equal(t, first.RequestID, uint64(1))
	assert.Check(t, time.Since(start) >= time.Second)

	// Then dispatch resumes normally.
	second := <-tr.Outbox()
	assert.Equal(t, second.RequestID, uint64(2))
}
