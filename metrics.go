package kozos

import (
	"sync/atomic"
	"time"

	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
)

// SyscallType aliases the internal syscall tag enum so Metrics and
// Observer can name it without every caller importing internal/syscall
// under its own alias (it collides with the standard library's package
// of the same name).
type SyscallType = kzsyscall.Type

// LatencyBuckets defines the trap-to-dispatch latency histogram buckets
// in nanoseconds, from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks dispatcher and resource statistics for a running kernel.
type Metrics struct {
	// Dispatcher counters
	TrapCount   atomic.Uint64 // total trap entries (syscalls from user threads)
	ServiceCalls atomic.Uint64 // total service calls (from interrupt context)
	DispatchCount atomic.Uint64 // total scheduler dispatches

	// Per-syscall-type counters, indexed by SyscallType
	SyscallCounts [numSyscallTypes]atomic.Uint64

	// Heap statistics
	HeapBytesInUse  atomic.Int64
	HeapAllocFails  atomic.Uint64

	// Message box statistics
	BoxEnvelopesPending atomic.Int64 // sum across all boxes
	BoxRendezvous       atomic.Uint64 // sends delivered directly to a parked receiver

	// Fault counters
	SoftErrors atomic.Uint64 // SOFTERR deliveries ("<name> DOWN.")
	Starvation atomic.Uint64 // scheduler found all ready queues empty

	// MaskedInterrupts counts Interrupt calls dropped because a priority-0
	// thread was current (spec §5, §8: priority 0 runs interrupts masked).
	MaskedInterrupts atomic.Uint64

	// Trap-to-dispatch latency
	TotalLatencyNs atomic.Uint64
	LatencyCount   atomic.Uint64
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordTrap records a trap-context syscall entry and its trap-to-dispatch
// latency.
func (m *Metrics) RecordTrap(syscallType SyscallType, latencyNs uint64) {
	m.TrapCount.Add(1)
	m.recordSyscall(syscallType)
	m.recordLatency(latencyNs)
}

// RecordServiceCall records an interrupt-context service call.
func (m *Metrics) RecordServiceCall(syscallType SyscallType) {
	m.ServiceCalls.Add(1)
	m.recordSyscall(syscallType)
}

func (m *Metrics) recordSyscall(syscallType SyscallType) {
	if int(syscallType) >= 0 && int(syscallType) < numSyscallTypes {
		m.SyscallCounts[syscallType].Add(1)
	}
}

// RecordDispatch records one scheduler dispatch decision.
func (m *Metrics) RecordDispatch() {
	m.DispatchCount.Add(1)
}

// RecordHeapAlloc adjusts the in-use byte count after a kmalloc/kmfree.
func (m *Metrics) RecordHeapAlloc(delta int64) {
	m.HeapBytesInUse.Add(delta)
}

// RecordHeapAllocFail records a kmalloc that returned null.
func (m *Metrics) RecordHeapAllocFail() {
	m.HeapAllocFails.Add(1)
}

// RecordBoxEnqueue records an envelope appended to a box FIFO.
func (m *Metrics) RecordBoxEnqueue() {
	m.BoxEnvelopesPending.Add(1)
}

// RecordBoxDequeue records an envelope removed from a box FIFO by recv. A
// rendezvous delivery never enters the FIFO and is not counted here.
func (m *Metrics) RecordBoxDequeue() {
	m.BoxEnvelopesPending.Add(-1)
}

// RecordRendezvous records a send delivered directly to a parked receiver.
func (m *Metrics) RecordRendezvous() {
	m.BoxRendezvous.Add(1)
}

// RecordSoftError records a SOFTERR delivery that destroyed a thread.
func (m *Metrics) RecordSoftError() {
	m.SoftErrors.Add(1)
}

// RecordStarvation records the scheduler finding every ready queue empty.
func (m *Metrics) RecordStarvation() {
	m.Starvation.Add(1)
}

// RecordMaskedInterrupt records an Interrupt call dropped because a
// priority-0 thread was current.
func (m *Metrics) RecordMaskedInterrupt() {
	m.MaskedInterrupts.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.LatencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the kernel as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, with derived rates.
type MetricsSnapshot struct {
	TrapCount     uint64
	ServiceCalls  uint64
	DispatchCount uint64

	SyscallCounts [numSyscallTypes]uint64

	HeapBytesInUse int64
	HeapAllocFails uint64

	BoxEnvelopesPending int64
	BoxRendezvous       uint64

	SoftErrors       uint64
	Starvation       uint64
	MaskedInterrupts uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns uint64
	LatencyP99Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	TrapsPerSecond float64
}

// Snapshot returns a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TrapCount:           m.TrapCount.Load(),
		ServiceCalls:        m.ServiceCalls.Load(),
		DispatchCount:       m.DispatchCount.Load(),
		HeapBytesInUse:      m.HeapBytesInUse.Load(),
		HeapAllocFails:      m.HeapAllocFails.Load(),
		BoxEnvelopesPending: m.BoxEnvelopesPending.Load(),
		BoxRendezvous:       m.BoxRendezvous.Load(),
		SoftErrors:          m.SoftErrors.Load(),
		Starvation:          m.Starvation.Load(),
		MaskedInterrupts:    m.MaskedInterrupts.Load(),
	}

	for i := 0; i < numSyscallTypes; i++ {
		snap.SyscallCounts[i] = m.SyscallCounts[i].Load()
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	latencyCount := m.LatencyCount.Load()
	if latencyCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / latencyCount
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
		snap.TrapsPerSecond = float64(snap.TrapCount) / uptimeSeconds
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if latencyCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	total := m.LatencyCount.Load()
	if total == 0 {
		return 0
	}

	targetCount := uint64(float64(total) * percentile)

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

// Reset zeroes all counters; useful for testing.
func (m *Metrics) Reset() {
	m.TrapCount.Store(0)
	m.ServiceCalls.Store(0)
	m.DispatchCount.Store(0)
	for i := 0; i < numSyscallTypes; i++ {
		m.SyscallCounts[i].Store(0)
	}
	m.HeapBytesInUse.Store(0)
	m.HeapAllocFails.Store(0)
	m.BoxEnvelopesPending.Store(0)
	m.BoxRendezvous.Store(0)
	m.SoftErrors.Store(0)
	m.Starvation.Store(0)
	m.MaskedInterrupts.Store(0)
	m.TotalLatencyNs.Store(0)
	m.LatencyCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection, mirroring the teacher's
// Observer/NoOpObserver/MetricsObserver trio.
type Observer interface {
	ObserveTrap(syscallType SyscallType, latencyNs uint64)
	ObserveServiceCall(syscallType SyscallType)
	ObserveDispatch()
	ObserveSoftError()
	ObserveStarvation()
	ObserveMaskedInterrupt()
}

// NoOpObserver is a no-op Observer implementation.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTrap(SyscallType, uint64)    {}
func (NoOpObserver) ObserveServiceCall(SyscallType)     {}
func (NoOpObserver) ObserveDispatch()                   {}
func (NoOpObserver) ObserveSoftError()                  {}
func (NoOpObserver) ObserveStarvation()                 {}
func (NoOpObserver) ObserveMaskedInterrupt()            {}

// MetricsObserver implements Observer by recording into a Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveTrap(syscallType SyscallType, latencyNs uint64) {
	o.metrics.RecordTrap(syscallType, latencyNs)
}

func (o *MetricsObserver) ObserveServiceCall(syscallType SyscallType) {
	o.metrics.RecordServiceCall(syscallType)
}

func (o *MetricsObserver) ObserveDispatch() {
	o.metrics.RecordDispatch()
}

func (o *MetricsObserver) ObserveSoftError() {
	o.metrics.RecordSoftError()
}

func (o *MetricsObserver) ObserveStarvation() {
	o.metrics.RecordStarvation()
}

func (o *MetricsObserver) ObserveMaskedInterrupt() {
	o.metrics.RecordMaskedInterrupt()
}

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
