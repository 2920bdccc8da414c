package kozos

import (
	"testing"
	"time"

	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordTrap(t *testing.T) {
	m := NewMetrics()

	m.RecordTrap(kzsyscall.Send, 1_000_000)
	m.RecordTrap(kzsyscall.Recv, 2_000_000)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.TrapCount)
	assert.EqualValues(t, 1, snap.SyscallCounts[kzsyscall.Send])
	assert.EqualValues(t, 1, snap.SyscallCounts[kzsyscall.Recv])
	assert.EqualValues(t, 1_500_000, snap.AvgLatencyNs)
}

func TestMetricsRecordServiceCall(t *testing.T) {
	m := NewMetrics()

	m.RecordServiceCall(kzsyscall.Wakeup)
	m.RecordServiceCall(kzsyscall.Wakeup)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.ServiceCalls)
	assert.EqualValues(t, 2, snap.SyscallCounts[kzsyscall.Wakeup])
	assert.Zero(t, snap.TrapCount, "service calls are not traps")
}

func TestMetricsHeapAccounting(t *testing.T) {
	m := NewMetrics()

	m.RecordHeapAlloc(128)
	m.RecordHeapAlloc(64)
	m.RecordHeapAllocFail()
	m.RecordHeapAlloc(-64)

	snap := m.Snapshot()
	assert.EqualValues(t, 128, snap.HeapBytesInUse)
	assert.EqualValues(t, 1, snap.HeapAllocFails)
}

func TestMetricsBoxAccounting(t *testing.T) {
	m := NewMetrics()

	m.RecordBoxEnqueue()
	m.RecordBoxEnqueue()
	m.RecordBoxDequeue()
	m.RecordRendezvous()

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.BoxEnvelopesPending)
	assert.EqualValues(t, 1, snap.BoxRendezvous)
}

func TestMetricsFaultCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordSoftError()
	m.RecordStarvation()
	m.RecordStarvation()

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.SoftErrors)
	assert.EqualValues(t, 2, snap.Starvation)
}

func TestMetricsLatencyPercentiles(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordTrap(kzsyscall.GetID, 500)
	}
	for i := 0; i < 49; i++ {
		m.RecordTrap(kzsyscall.GetID, 5_000_000)
	}
	m.RecordTrap(kzsyscall.GetID, 5_000_000_000)

	snap := m.Snapshot()
	assert.LessOrEqual(t, snap.LatencyP50Ns, snap.LatencyP99Ns)
	assert.NotZero(t, snap.LatencyP99Ns)
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()
	time.Sleep(5 * time.Millisecond)

	snap := m.Snapshot()
	assert.GreaterOrEqual(t, snap.UptimeNs, uint64(5*time.Millisecond))

	m.Stop()
	stopped := m.Snapshot().UptimeNs
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, stopped, m.Snapshot().UptimeNs, "uptime freezes once stopped")
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordTrap(kzsyscall.Sleep, 1000)
	m.RecordHeapAlloc(32)
	m.RecordStarvation()

	m.Reset()

	snap := m.Snapshot()
	assert.Zero(t, snap.TrapCount)
	assert.Zero(t, snap.HeapBytesInUse)
	assert.Zero(t, snap.Starvation)
}

func TestMetricsObserverForwardsToMetrics(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	obs.ObserveTrap(kzsyscall.Send, 1000)
	obs.ObserveServiceCall(kzsyscall.Wakeup)
	obs.ObserveDispatch()
	obs.ObserveSoftError()
	obs.ObserveStarvation()

	snap := m.Snapshot()
	assert.EqualValues(t, 1, snap.TrapCount)
	assert.EqualValues(t, 1, snap.ServiceCalls)
	assert.EqualValues(t, 1, snap.DispatchCount)
	assert.EqualValues(t, 1, snap.SoftErrors)
	assert.EqualValues(t, 1, snap.Starvation)
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	var o NoOpObserver
	assert.NotPanics(t, func() {
		o.ObserveTrap(kzsyscall.Send, 1000)
		o.ObserveServiceCall(kzsyscall.Send)
		o.ObserveDispatch()
		o.ObserveSoftError()
		o.ObserveStarvation()
	})
}
