// Package tcb implements the thread/context subsystem: a fixed array of
// task control blocks, a bump-pointer stack arena, and the goroutine-park
// mechanism that stands in for context save/restore (spec §3, §4.1; see
// SPEC_FULL.md §1 for why a goroutine-per-TCB parked on a channel replaces
// a hand-crafted stack image in this port).
package tcb

import (
	"github.com/kozos-go/kozos/internal/syscall"
)

// Flags is the TCB bitset. Only bit 0 is defined by the spec.
type Flags uint8

// FlagReady is set iff the TCB is currently linked into a ready queue.
const FlagReady Flags = 1 << 0

// State tracks the lifecycle of a TCB's goroutine, beyond what the
// original flags bit expresses, so tests and introspection can tell a
// sleeping thread apart from one parked in recv.
type State int

const (
	// StateFree marks an unused TCB slot (init.func == nil in spec terms).
	StateFree State = iota
	StateRunnable // READY: linked into a ready queue
	StateRunning  // currently selected as current, not itself requeued here
	StateBlocked  // suspended outside any ready queue (sleep, parked recv)
)

// TCB is a single thread's control block. Index-into-array representation
// per spec §9 Design Notes, in place of an intrusive pointer-based list:
// Next holds the index of the next TCB on the same ready queue, or -1.
type TCB struct {
	Next int

	Name     string
	Priority int
	Flags    Flags
	State    State

	// Argv records the creation-time arguments for introspection; the
	// actual entry point lives as a Go closure captured by the thread's
	// goroutine, not on the TCB (tcb has no portable way to name the
	// kozos-level thread-handle type its signature needs).
	Argv []any

	StackBase int
	StackSize int

	// Syscall is the request slot a thread writes before trapping; it
	// stays valid until the primitive returns (spec §4.3: "the kernel
	// assumes the caller's parameter block outlives the call").
	Syscall syscall.Param

	// Resume is the port mechanism: the goroutine running this thread
	// parks on a receive from Resume when it is not the dispatched
	// winner, and is woken by a single send when the scheduler selects
	// it again.
	Resume chan struct{}

	// Box is set while State == StateBlocked because of a parked recv,
	// naming which message box this TCB is the receiver of. -1 otherwise.
	Box int

	// PendingSize/PendingPtr/PendingSender hold a recv result written by
	// a matching send while this TCB was parked as a box's receiver
	// (spec §4.5: "the real result will be written by the matching send
	// before the thread is re-scheduled").
	PendingSize   int
	PendingPtr    []byte
	PendingSender int
}

// IsReady reports whether the TCB's READY bit is set.
func (t *TCB) IsReady() bool {
	return t.Flags&FlagReady != 0
}

// SetReady sets or clears the READY bit. Called by internal/sched as it
// links/unlinks a TCB from a ready queue; the two must never drift apart
// (spec §8 invariant: READY(T) ⇔ T ∈ readyque[T.priority]).
func (t *TCB) SetReady(ready bool) {
	if ready {
		t.Flags |= FlagReady
	} else {
		t.Flags &^= FlagReady
	}
}

// Pool owns the fixed TCB array and the stack arena bump pointer.
type Pool struct {
	Threads []TCB

	arenaSize  int
	arenaNext  int
}

// NewPool allocates a pool of n TCBs backed by a stack arena of the given
// byte size. All TCBs start free.
func NewPool(n int, arenaSize int) *Pool {
	p := &Pool{
		Threads:   make([]TCB, n),
		arenaSize: arenaSize,
	}
	for i := range p.Threads {
		p.Threads[i].Next = -1
		p.Threads[i].Box = -1
		p.Threads[i].Resume = make(chan struct{}, 1)
	}
	return p
}

// Alloc finds the first free TCB by linear scan, per spec §4.1 ("find the
// first free TCB"). It returns (-1, false) if every slot is occupied.
func (p *Pool) Alloc() (int, bool) {
	for i := range p.Threads {
		if p.Threads[i].State == StateFree {
			return i, true
		}
	}
	return -1, false
}

// CarveStack advances the bump pointer by size bytes and returns the base
// offset of the new region. Stacks are never reclaimed on thread exit
// (spec §9 Open Questions: intentional, matches the original). Returns
// (-1, false) if the arena is exhausted.
func (p *Pool) CarveStack(size int) (int, bool) {
	if p.arenaNext+size > p.arenaSize {
		return -1, false
	}
	base := p.arenaNext
	p.arenaNext += size
	return base, true
}

// Init populates a freshly-allocated TCB with creation parameters and
// resets its bookkeeping fields. It does not touch ready-queue linkage;
// the caller (the scheduler/dispatcher) is responsible for enqueuing it.
func (p *Pool) Init(idx int, name string, priority int, argv []any, stackBase, stackSize int) {
	t := &p.Threads[idx]
	t.Name = truncateName(name)
	t.Priority = priority
	t.Argv = argv
	t.StackBase = stackBase
	t.StackSize = stackSize
	t.Next = -1
	t.Box = -1
	t.State = StateRunnable
	select {
	case <-t.Resume:
	default:
	}
}

// Free zeroes the whole TCB, per spec §4.1 ("termination zeroes the whole
// TCB"). The slot becomes eligible for Alloc again.
func (p *Pool) Free(idx int) {
	resume := p.Threads[idx].Resume
	p.Threads[idx] = TCB{Next: -1, Box: -1, Resume: resume}
}

// nameMax is the printable-name buffer size including the NUL terminator
// (spec §3: "name: short printable identifier <= 15 chars + terminator").
const nameMax = 16

func truncateName(name string) string {
	if len(name) > nameMax-1 {
		return name[:nameMax-1]
	}
	return name
}
