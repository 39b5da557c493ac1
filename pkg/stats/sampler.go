package stats

import (
	"context"
	"os"
	"time"

	"github.com/hacksh-LesMiddleMen/grr/pkg/logging"

	"github.com/shirou/gopsutil/v3/process"
)

const defaultSampleInterval = 10 * time.Second

// Sampler periodically records the running process's CPU and I/O usage into
// a Collector. It runs on its own goroutine under the worker's group; the
// Collector's locking keeps it from ever being blocked indefinitely by
// readers.
type Sampler struct {
	log       logging.Logger
	collector *Collector
	interval  time.Duration

	proc *process.Process
}

func NewSampler(log logging.Logger, collector *Collector, interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	return &Sampler{
		log:       log,
		collector: collector,
		interval:  interval,
	}
}

func (s *Sampler) Run(ctx context.Context) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		// Losing samples degrades stats replies but must not take the
		// worker down.
		s.log.WithError(err).Error("unable to observe own process, sampling disabled")
		<-ctx.Done()
		return nil
	}
	s.proc = proc

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sample()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	now := time.Now()

	times, err := s.proc.Times()
	if err == nil {
		percent, _ := s.proc.CPUPercent()
		s.collector.RecordCPU(CPUSample{
			Timestamp:     now,
			UserCPUTime:   times.User,
			SystemCPUTime: times.System,
			CPUPercent:    percent,
		})
	} else if logging.Debuggable {
		s.log.WithError(err).Debug("could not sample cpu times")
	}

	// I/O counters are not available on every platform; skip quietly.
	counters, err := s.proc.IOCounters()
	if err == nil {
		s.collector.RecordIO(IOSample{
			Timestamp:  now,
			ReadBytes:  counters.ReadBytes,
			WriteBytes: counters.WriteBytes,
		})
	} else if logging.Debuggable {
		s.log.WithError(err).Debug("could not sample io counters")
	}
}
