package ddtengine

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks performance and operational statistics for one Engine.
type Metrics struct {
	// Transfer counters
	PackOps   atomic.Uint64 // Completed pack (send-direction) transfers
	UnpackOps atomic.Uint64 // Completed unpack (receive-direction) transfers

	// Byte counters
	PackBytes   atomic.Uint64 // Total bytes packed
	UnpackBytes atomic.Uint64 // Total bytes unpacked

	// Error counters
	PackErrors   atomic.Uint64
	UnpackErrors atomic.Uint64

	// In-flight gauge
	ActiveTransfers atomic.Int64

	// Performance tracking (per completed transfer)
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts); bucket[i] holds the
	// count of transfers with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	// Engine lifecycle
	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordPack records one completed pack transfer.
func (m *Metrics) RecordPack(bytes uint64, latencyNs uint64, success bool) {
	m.PackOps.Add(1)
	if success {
		m.PackBytes.Add(bytes)
	} else {
		m.PackErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordUnpack records one completed unpack transfer.
func (m *Metrics) RecordUnpack(bytes uint64, latencyNs uint64, success bool) {
	m.UnpackOps.Add(1)
	if success {
		m.UnpackBytes.Add(bytes)
	} else {
		m.UnpackErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordTransferStart increments the in-flight gauge.
func (m *Metrics) RecordTransferStart() {
	m.ActiveTransfers.Add(1)
}

// RecordTransferEnd decrements the in-flight gauge.
func (m *Metrics) RecordTransferEnd() {
	m.ActiveTransfers.Add(-1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the engine as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics plus derived rates.
type MetricsSnapshot struct {
	PackOps   uint64
	UnpackOps uint64

	PackBytes   uint64
	UnpackBytes uint64

	PackErrors   uint64
	UnpackErrors uint64

	ActiveTransfers int64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	PackThroughputBps   float64
	UnpackThroughputBps float64
	TotalOps            uint64
	TotalBytes          uint64
	ErrorRate           float64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		PackOps:         m.PackOps.Load(),
		UnpackOps:       m.UnpackOps.Load(),
		PackBytes:       m.PackBytes.Load(),
		UnpackBytes:     m.UnpackBytes.Load(),
		PackErrors:      m.PackErrors.Load(),
		UnpackErrors:    m.UnpackErrors.Load(),
		ActiveTransfers: m.ActiveTransfers.Load(),
	}

	snap.TotalOps = snap.PackOps + snap.UnpackOps
	snap.TotalBytes = snap.PackBytes + snap.UnpackBytes

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.PackThroughputBps = float64(snap.PackBytes) / uptimeSeconds
		snap.UnpackThroughputBps = float64(snap.UnpackBytes) / uptimeSeconds
	}

	totalErrors := snap.PackErrors + snap.UnpackErrors
	if snap.TotalOps > 0 {
		snap.ErrorRate = float64(totalErrors) / float64(snap.TotalOps) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// by linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters and restarts StartTime. Useful for tests.
func (m *Metrics) Reset() {
	m.PackOps.Store(0)
	m.UnpackOps.Store(0)
	m.PackBytes.Store(0)
	m.UnpackBytes.Store(0)
	m.PackErrors.Store(0)
	m.UnpackErrors.Store(0)
	m.ActiveTransfers.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection from the Engine.
type Observer interface {
	ObservePack(bytes uint64, latencyNs uint64, success bool)
	ObserveUnpack(bytes uint64, latencyNs uint64, success bool)
	ObserveTransferStart()
	ObserveTransferEnd()
}

// NoOpObserver discards every observation.
type NoOpObserver struct{}

func (NoOpObserver) ObservePack(uint64, uint64, bool)   {}
func (NoOpObserver) ObserveUnpack(uint64, uint64, bool) {}
func (NoOpObserver) ObserveTransferStart()              {}
func (NoOpObserver) ObserveTransferEnd()                {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records into m.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObservePack(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordPack(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveUnpack(bytes uint64, latencyNs uint64, success bool) {
	o.metrics.RecordUnpack(bytes, latencyNs, success)
}

func (o *MetricsObserver) ObserveTransferStart() { o.metrics.RecordTransferStart() }
func (o *MetricsObserver) ObserveTransferEnd()   { o.metrics.RecordTransferEnd() }

var _ Observer = (*MetricsObserver)(nil)
