package stats

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is a point-in-time view of the process's resource usage together
// with the retained sample history. It is the payload of a stats reply.
type Snapshot struct {
	RSSSize       uint64
	VMSSize       uint64
	MemoryPercent float32
	BytesSent     uint64
	BytesReceived uint64
	CreateTime    time.Time
	BootTime      time.Time
	CPUSamples    []CPUSample
	IOSamples     []IOSample
}

// Snapshot assembles the current usage view. Partial data is acceptable:
// any probe that fails leaves its fields zeroed rather than failing the
// whole snapshot.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		CPUSamples: c.CPUSamples(),
		IOSamples:  c.IOSamples(),
	}
	snap.BytesSent, snap.BytesReceived = c.Traffic()

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			snap.RSSSize = mem.RSS
			snap.VMSSize = mem.VMS
		}
		if pct, err := proc.MemoryPercent(); err == nil {
			snap.MemoryPercent = pct
		}
		if created, err := proc.CreateTime(); err == nil {
			snap.CreateTime = time.UnixMilli(created)
		}
	}
	if boot, err := host.BootTime(); err == nil {
		snap.BootTime = time.Unix(int64(boot), 0)
	}
	return snap
}
