// Package kozos implements the core of a small preemptive real-time
// kernel: thread/context management, a priority-based preemptive
// scheduler, a trap-based system-call dispatcher with a service-call
// variant for interrupt context, a buddy-style kernel heap, rendezvous
// message boxes, and a soft-vector interrupt handler registry.
//
// Go has no portable access to raw stacks or an instruction pointer, so
// each thread is represented by a long-lived goroutine parked on a
// per-TCB channel, and "the CPU" is the invariant that at most one such
// goroutine is ever unparked at a time. See Kernel.mu and dispatch.go.
package kozos

import (
	"sync"
	"sync/atomic"

	"github.com/kozos-go/kozos/internal/console"
	"github.com/kozos-go/kozos/internal/heap"
	"github.com/kozos-go/kozos/internal/kzerr"
	"github.com/kozos-go/kozos/internal/logging"
	"github.com/kozos-go/kozos/internal/mbox"
	"github.com/kozos-go/kozos/internal/sched"
	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
	"github.com/kozos-go/kozos/internal/tcb"
	"github.com/kozos-go/kozos/internal/vector"
)

const numSyscallTypes = int(kzsyscall.NumTypes)

// Kernel is the single process-wide value holding every kernel
// singleton — current, readyque, threads, handlers, msgboxes, and the
// heap free lists — as fields reached only through Kernel.mu, matching
// spec §9 Design Notes ("model them as fields of a single Kernel value
// passed by exclusive reference to all primitives").
type Kernel struct {
	mu sync.Mutex

	cfg Config

	pool    *tcb.Pool
	queues  *sched.Queues
	heap    *heap.Heap
	boxes   *mbox.Boxes
	vectors *vector.Registry

	console console.Sink
	logger  *logging.Logger
	metrics *Metrics
	observer Observer

	current int

	// halted is read by Halted() without k.mu, since halt() never
	// releases the lock once tripped — an atomic flag, not a plain bool
	// guarded by the mutex it would otherwise deadlock against.
	halted   atomic.Bool
	haltErr  error
	haltedCh chan struct{}
}

// NewKernel builds a kernel from cfg (DefaultConfig() if nil), wired to
// the given console sink and logger.
func NewKernel(cfg *Config, sink console.Sink, logger *logging.Logger) *Kernel {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Default()
	}

	k := &Kernel{
		cfg:      *cfg,
		pool:     tcb.NewPool(cfg.ThreadNum, cfg.StackArenaSize),
		queues:   sched.New(cfg.PriorityNum),
		heap:     heap.New(cfg.HeapArenaSize, cfg.HeapMinBlock, cfg.HeapMaxBlock),
		boxes:    mbox.NewBoxes(cfg.MsgBoxNum),
		vectors:  vector.NewRegistry(vector.NumReserved + cfg.MsgBoxNum),
		console:  sink,
		logger:   logger,
		metrics:  NewMetrics(),
		observer: NoOpObserver{},
		current:  -1,
		haltedCh: make(chan struct{}),
	}
	return k
}

// SetObserver installs an Observer that mirrors every Metrics update,
// the way the teacher's Device wires a MetricsObserver alongside Metrics
// itself.
func (k *Kernel) SetObserver(o Observer) {
	if o == nil {
		o = NoOpObserver{}
	}
	k.observer = o
}

// Metrics returns the kernel's live metrics counters.
func (k *Kernel) Metrics() *Metrics {
	return k.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the kernel's
// metrics.
func (k *Kernel) MetricsSnapshot() MetricsSnapshot {
	return k.metrics.Snapshot()
}

// BootSpec describes one thread to create at kernel start.
type BootSpec struct {
	Name       string
	Priority   int
	StackSize  int
	Entry      ThreadFunc
	Argv       []any
}

// Start creates each boot thread (there is no calling thread to requeue
// for these, unlike a run() issued at runtime), launches their
// goroutines, and runs the scheduler once to dispatch the first winner.
// It blocks until the kernel halts (spec §7 system_down) and returns the
// fatal error that halted it.
func (k *Kernel) Start(specs ...BootSpec) error {
	k.mu.Lock()
	for _, s := range specs {
		idx, ok := k.pool.Alloc()
		if !ok {
			k.mu.Unlock()
			return kzerr.New("start", kzerr.CodeNoFreeTCB, "no free TCB for boot thread "+s.Name)
		}
		stackSize := s.StackSize
		if stackSize == 0 {
			stackSize = 4096
		}
		base, ok := k.pool.CarveStack(stackSize)
		if !ok {
			k.mu.Unlock()
			return kzerr.New("start", kzerr.CodeHeapExhausted, "stack arena exhausted for boot thread "+s.Name)
		}
		k.pool.Init(idx, s.Name, s.Priority, s.Argv, base, stackSize)
		k.queues.Enqueue(k.pool, idx)
		go k.runThread(idx, s.Entry)
	}

	k.selectAndDispatch(-1, false)

	<-k.haltedCh
	return k.haltErr
}

// runThread is the goroutine body standing in for a thread's context: it
// parks until first dispatched, runs entry, and — if entry returns
// normally without an explicit Exit() — performs the implicit exit the
// original's startup trampoline guarantees (spec §4.1).
func (k *Kernel) runThread(idx int, entry ThreadFunc) {
	<-k.pool.Threads[idx].Resume
	th := &Thread{k: k, idx: idx}
	argv := k.pool.Threads[idx].Argv
	entry(th, argv)
	k.doExitAndSchedule(idx)
}

// halt transitions the kernel into system_down: logs the fatal message,
// records it, and closes haltedCh so Start returns. Must be called with
// k.mu held; it does not unlock, since no further kernel activity is
// meaningful after a halt (spec §7: "halts the CPU in an infinite loop").
func (k *Kernel) halt(err *kzerr.Error) {
	if k.halted.Load() {
		return
	}
	k.halted.Store(true)
	k.haltErr = err
	k.console.Puts("system error!\n")
	k.logger.Error("system_down", "reason", err.Msg)
	close(k.haltedCh)
}
