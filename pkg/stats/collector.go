// Package stats maintains rolling buffers of the client's own resource
// usage. A periodic sampler appends; actions snapshot the buffers read-only
// when assembling a stats reply.
package stats

import (
	"sync"
	"time"
)

// maxSamples bounds each rolling buffer; the oldest sample is evicted
// first. At the default sampling cadence this retains several minutes of
// history.
const maxSamples = 51

// CPUSample is one observation of the process's CPU usage.
type CPUSample struct {
	Timestamp     time.Time
	UserCPUTime   float64
	SystemCPUTime float64
	CPUPercent    float64
}

// IOSample is one observation of the process's cumulative I/O byte counts.
type IOSample struct {
	Timestamp  time.Time
	ReadBytes  uint64
	WriteBytes uint64
}

// Collector owns the rolling sample buffers. Appends come from a single
// sampler; reads may come concurrently from the dispatch thread.
type Collector struct {
	mu         sync.RWMutex
	cpuSamples []CPUSample
	ioSamples  []IOSample

	bytesSent     uint64
	bytesReceived uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

// RecordCPU appends a CPU sample. Timestamps are kept non-decreasing: a
// sample observed behind the newest retained one is clamped forward.
func (c *Collector) RecordCPU(s CPUSample) {
	c.mu.Lock()
	if n := len(c.cpuSamples); n > 0 && s.Timestamp.Before(c.cpuSamples[n-1].Timestamp) {
		s.Timestamp = c.cpuSamples[n-1].Timestamp
	}
	c.cpuSamples = append(c.cpuSamples, s)
	if len(c.cpuSamples) > maxSamples {
		c.cpuSamples = c.cpuSamples[len(c.cpuSamples)-maxSamples:]
	}
	c.mu.Unlock()
}

// RecordIO appends an I/O sample with the same ordering and bound rules as
// RecordCPU.
func (c *Collector) RecordIO(s IOSample) {
	c.mu.Lock()
	if n := len(c.ioSamples); n > 0 && s.Timestamp.Before(c.ioSamples[n-1].Timestamp) {
		s.Timestamp = c.ioSamples[n-1].Timestamp
	}
	c.ioSamples = append(c.ioSamples, s)
	if len(c.ioSamples) > maxSamples {
		c.ioSamples = c.ioSamples[len(c.ioSamples)-maxSamples:]
	}
	c.mu.Unlock()
}

// CPUSamples returns a copy of the retained CPU samples, oldest first.
func (c *Collector) CPUSamples() []CPUSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CPUSample, len(c.cpuSamples))
	copy(out, c.cpuSamples)
	return out
}

// IOSamples returns a copy of the retained I/O samples, oldest first.
func (c *Collector) IOSamples() []IOSample {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]IOSample, len(c.ioSamples))
	copy(out, c.ioSamples)
	return out
}

// AddSent accounts bytes handed to the transport.
func (c *Collector) AddSent(n uint64) {
	c.mu.Lock()
	c.bytesSent += n
	c.mu.Unlock()
}

// AddReceived accounts bytes received from the transport.
func (c *Collector) AddReceived(n uint64) {
	c.mu.Lock()
	c.bytesReceived += n
	c.mu.Unlock()
}

// Traffic reports the cumulative transport byte counters.
func (c *Collector) Traffic() (sent, received uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bytesSent, c.bytesReceived
}
