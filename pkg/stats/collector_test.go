package stats

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestBufferBound(t *testing.T) {
	c := NewCollector()
	base := time.Now()
	for i := 0; i < maxSamples*3; i++ {
		c.RecordCPU(CPUSample{Timestamp: base.Add(time.Duration(i) * time.Second)})
		c.RecordIO(IOSample{Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	cpu := c.CPUSamples()
	io := c.IOSamples()
	assert.Equal(t, len(cpu), maxSamples)
	assert.Equal(t, len(io), maxSamples)

	// Oldest evicted first: the retained window is the tail.
	assert.Equal(t, cpu[len(cpu)-1].Timestamp, base.Add(time.Duration(maxSamples*3-1)*time.Second))
	assert.Equal(t, cpu[0].Timestamp, base.Add(time.Duration(maxSamples*2)*time.Second))
}

func TestTimestampsNonDecreasing(t *testing.T) {
	c := NewCollector()
	base := time.Now()

	c.RecordCPU(CPUSample{Timestamp: base})
	// A clock step backwards must not break ordering.
	c.RecordCPU(CPUSample{Timestamp: base.Add(-time.Minute)})
	c.RecordCPU(CPUSample{Timestamp: base.Add(time.Second)})

	samples := c.CPUSamples()
	for i := 1; i < len(samples); i++ {
		assert.Check(t, !samples[i].Timestamp.Before(samples[i-1].Timestamp))
	}
}

func TestSamplesAreCopies(t *testing.T) {
	c := NewCollector()
	c.RecordIO(IOSample{Timestamp: time.Now(), ReadBytes: 1})

	snap := c.IOSamples()
	snap[0].ReadBytes = 999

	assert.Equal(t, c.IOSamples()[0].ReadBytes, uint64(1))
}

func TestTraffic(t *testing.T) {
	c := NewCollector()
	c.AddSent(100)
	c.AddSent(50)
	c.AddReceived(7)

	sent, received := c.Traffic()
	assert.Equal(t, sent, uint64(150))
	assert.Equal(t, received, uint64(7))
}

func TestSnapshotIncludesHistory(t *testing.T) {
	c := NewCollector()
	now := time.Now()
	c.RecordCPU(CPUSample{Timestamp: now, CPUPercent: 12.5})
	c.RecordIO(IOSample{Timestamp: now, WriteBytes: 42})

	snap := c.Snapshot()
	assert.Equal(t, len(snap.CPUSamples), 1)
	assert.Equal(t, snap.CPUSamples[0].CPUPercent, 12.5)
	assert.Equal(t, len(snap.IOSamples), 1)
	assert.Equal(t, snap.IOSamples[0].WriteBytes, uint64(42))
	// Own-process probes should succeed on any supported platform.
	assert.Check(t, snap.RSSSize > 0)
}
