package main

import (
	"context"
	"flag"
	"os"
	"syscall"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/config"
	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"
	"github.com/hacksh-LesMiddleMen/grr/pkg/nanny"
	"github.com/hacksh-LesMiddleMen/grr/pkg/sigcontext"
	"github.com/hacksh-LesMiddleMen/grr/pkg/transport"
	"github.com/hacksh-LesMiddleMen/grr/pkg/worker"
	"github.com/hacksh-LesMiddleMen/grr/pkg/workgroup"
	"github.com/pkg/errors"
)

var (
	flagConfig   = flag.String("config", "/etc/grr/client.yaml", "path to the stored client configuration")
	flagLogDebug = flag.Bool("debug", false, "")
)

func main() {
	flag.Parse()

	if *flagLogDebug {
		logging.Set(logging.Level("debug"))
	}

	log := logging.New("main")

	// "debuggable" builds at runtime produce extensive logging output
	// compared to release builds with the debug flag enabled. This requires
	// building and using a distinct build in the deployment in order to use.
	if logging.Debuggable {
		log.Info("low-level logging.Debuggable is enabled in this build")
		log.Warn("logging.Debuggable produces large volumes of logs")
		delay := 3 * time.Second
		log.WithField("delay", delay).Warn("delaying start due to logging.Debuggable build")
		time.Sleep(delay)
		log.Info("starting logging.Debuggable enabled build")
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.WithError(err).Fatalf("configuration")
	}
	if cfg.Verbose {
		logging.Set(logging.Level("debug"))
	}

	ctx, cancel := sigcontext.WithSignalCancel(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := runWorker(ctx, cfg, *flagConfig); err != nil {
		log.WithError(err).Fatalf("worker stopped")
	}
	log.Info("woof, signing off")
	os.Exit(0)
}

func runWorker(ctx context.Context, cfg *config.Config, configPath string) error {
	log := logging.New("worker")

	updater := config.NewUpdater(
		logging.New("config"), cfg, &config.FilePersister{Path: configPath})

	// The wire transport is provided by the packaging of this binary; the
	// in-memory transport here keeps a bare build runnable for development.
	t := transport.NewLocal(64)

	w := worker.New(log, t, updater)
	watchdog := nanny.New(logging.New("nanny"), w.LastHeartbeat)

	group := workgroup.WithContext(ctx)
	group.Work(w.Run)
	group.Work(watchdog.Run)
	return errors.WithMessage(group.Wait(), "run error")
}
