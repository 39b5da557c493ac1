package action

// Fault injection and terminal actions. Kill, Hang, BusyHang and Bloat
// exist to validate the external supervisor and resource limits; the first
// is intentionally fatal and the others intentionally stall the dispatch
// thread. None of that is error handling territory.

import (
	"context"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/message"
)

const (
	defaultHangSeconds     = 6000
	defaultBusyHangSeconds = 5
	defaultBloatMegabytes  = 1024
	bloatHold              = 60 * time.Second
)

// kill announces the shutdown with a queue-jumping status, gives the
// transport a grace interval to drain it, then terminates the process with
// the reserved exit code. No cleanup, no rollback; respawn is the
// supervisor's job.
func kill(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		// One past PriorityHigh forces this ahead of any queued traffic.
		if err := out.EmitStatus(message.Status{OK: true}, message.PriorityHigh+1); err != nil {
			deps.Log.WithError(err).Error("could not queue kill status")
		}
		deps.Sleep(deps.KillGrace)
		deps.Log.Info("dying on request")
		deps.Proc.Exit(KillExitCode)
		return nil
	}
}

// hang blocks the dispatch thread outright. There is deliberately no
// select on ctx: a hung client must look hung to the supervisor.
func hang(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		deps.Sleep(time.Duration(in.Integer("integer", defaultHangSeconds)) * time.Second)
		return nil
	}
}

// busyHang burns CPU on the dispatch thread until the deadline passes.
func busyHang(ctx context.Context, in Input, out Emitter) error {
	end := time.Now().Add(time.Duration(in.Integer("integer", defaultBusyHangSeconds)) * time.Second)
	for time.Now().Before(end) {
	}
	return nil
}

// bloat allocates a caller-scaled amount of memory and holds it, for
// exercising resident-memory enforcement elsewhere.
func bloat(deps Deps) RunFunc {
	return func(ctx context.Context, in Input, out Emitter) error {
		iterations := in.Integer("integer", defaultBloatMegabytes)
		blocks := make([][]byte, 0, iterations)
		for i := int64(0); i < iterations; i++ {
			block := make([]byte, 1<<20)
			// Touch each page so the allocation is resident, not
			// just reserved.
			for j := 0; j < len(block); j += 4096 {
				block[j] = 'X'
			}
			blocks = append(blocks, block)
		}
		deps.Sleep(bloatHold)
		_ = blocks
		return nil
	}
}
