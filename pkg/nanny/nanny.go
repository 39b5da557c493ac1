// Package nanny feeds the external supervisor's liveness check. The
// keepalive is driven by dispatch-loop heartbeats: a client stuck in Hang or
// BusyHang stops petting the watchdog and gets restarted from outside. The
// worker itself never tries to interrupt a stuck action.
package nanny

import (
	"context"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Heartbeat reports the supervised component's last sign of life.
type Heartbeat func() time.Time

// Notifier relays liveness to the systemd watchdog.
type Notifier struct {
	log       logging.Logger
	heartbeat Heartbeat

	// notify is swapped by tests.
	notify func(unsetEnv bool, state string) (bool, error)
}

func New(log logging.Logger, heartbeat Heartbeat) *Notifier {
	return &Notifier{
		log:       log,
		heartbeat: heartbeat,
		notify:    daemon.SdNotify,
	}
}

// Run announces readiness and then pets the watchdog for as long as the
// heartbeat stays fresh. Without a watchdog-enabled environment it idles
// until the context ends.
func (n *Notifier) Run(ctx context.Context) error {
	window, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.log.WithError(err).Warn("could not read watchdog environment")
	}

	if _, err := n.notify(false, daemon.SdNotifyReady); err != nil {
		n.log.WithError(err).Warn("could not announce readiness")
	}

	if window <= 0 {
		n.log.Debug("no supervisor watchdog, idling")
		<-ctx.Done()
		return nil
	}

	return n.pet(ctx, window)
}

func (n *Notifier) pet(ctx context.Context, window time.Duration) error {
	// Half the window keeps a missed tick from expiring the watchdog.
	ticker := time.NewTicker(window / 2)
	defer ticker.Stop()

	stale := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			lag := time.Since(n.heartbeat())
			if lag >= window {
				if !stale {
					n.log.WithField("lag", lag).
						Warn("dispatch stalled, withholding keepalive")
					stale = true
				}
				continue
			}
			stale = false
			if _, err := n.notify(false, daemon.SdNotifyWatchdog); err != nil {
				n.log.WithError(err).Warn("could not pet watchdog")
			}
		}
	}
}
