package kozos

import (
	"runtime"

	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
)

// ThreadFunc is the entry point of a thread created via Run or a boot
// spec. Go has no ambient "current thread" state to recover primitives
// from the way the original's global current pointer does, so self is
// threaded through explicitly instead.
type ThreadFunc func(self *Thread, argv []any)

// Thread is a live handle onto one running thread's TCB, handed to its
// entry function in place of an implicit "current" global.
type Thread struct {
	k   *Kernel
	idx int
}

// Handle returns the thread's TCB index, the kozos equivalent of a task
// ID (spec §4.1: the handle returned by run()/getid() is the TCB index).
func (t *Thread) Handle() int {
	return t.idx
}

// Run creates a new thread and returns its handle, or -1 if no TCB or
// stack arena space remains (spec §4.1, run()).
func (t *Thread) Run(name string, priority, stackSize int, entry ThreadFunc, argv []any) int {
	var handle int
	t.k.trap(t.idx, kzsyscall.Run, func() {
		handle = t.k.doRun(name, priority, stackSize, entry, argv)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
	return handle
}

// Exit terminates the calling thread. Like the original's exit(), it
// never returns to its caller: runtime.Goexit unwinds this goroutine the
// way control never falls through to code after the original trap.
func (t *Thread) Exit() {
	t.k.trap(t.idx, kzsyscall.Exit, func() {
		t.k.doExit(t.idx)
	})
	runtime.Goexit()
}

// Wait yields the CPU without blocking: the caller stays ready and simply
// re-competes for dispatch (spec §4.2, wait()).
func (t *Thread) Wait() {
	t.k.trap(t.idx, kzsyscall.Wait, func() {
		t.k.doWait(t.idx)
	})
}

// Sleep blocks the calling thread until a matching Wakeup (spec §4.2,
// sleep()).
func (t *Thread) Sleep() {
	t.k.trap(t.idx, kzsyscall.Sleep, func() {
		t.k.doSleep(t.idx)
	})
}

// Wakeup makes the thread named by handle runnable again; the caller
// itself stays runnable too (spec §4.2, wakeup()).
func (t *Thread) Wakeup(handle int) {
	t.k.trap(t.idx, kzsyscall.Wakeup, func() {
		t.k.doWakeup(handle)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
}

// GetID returns the calling thread's own handle, requeuing it at the tail
// of its priority's queue like any other non-blocking syscall (spec
// §4.1, §4.3: getid goes through the same remove/run/requeue/dispatch
// protocol as wait and chpri, not a bare field read).
func (t *Thread) GetID() int {
	t.k.trap(t.idx, kzsyscall.GetID, func() {
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
	return t.idx
}

// ChangePriority changes the caller's own scheduling priority and returns
// its previous value (spec §4.2, chpri()).
func (t *Thread) ChangePriority(priority int) int {
	var old int
	t.k.trap(t.idx, kzsyscall.ChPri, func() {
		old = t.k.doChPri(t.idx, priority)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
	return old
}

// KMalloc allocates n bytes from the kernel heap, or returns nil if the
// heap cannot satisfy the request (spec §4.4, kz_kmalloc()).
func (t *Thread) KMalloc(n int) []byte {
	var p []byte
	t.k.trap(t.idx, kzsyscall.KMalloc, func() {
		p = t.k.doKMalloc(n)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
	return p
}

// KMFree releases a slice previously returned by KMalloc (spec §4.4,
// kz_kmfree()).
func (t *Thread) KMFree(p []byte) {
	t.k.trap(t.idx, kzsyscall.KMFree, func() {
		t.k.doKMFree(p)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
}

// Send delivers size bytes of p to box, either straight to an already
// parked receiver or onto the box's FIFO (spec §4.5, send()).
func (t *Thread) Send(box, size int, p []byte) int {
	var ret int
	t.k.trap(t.idx, kzsyscall.Send, func() {
		ret = t.k.doSend(t.idx, box, size, p)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
	return ret
}

// Recv blocks until a message arrives on box, then returns its size,
// payload, and sender handle (spec §4.5, recv()). Calling Recv again on a
// box that already has a parked receiver is a fatal protocol violation.
func (t *Thread) Recv(box int) (size int, p []byte, sender int) {
	blocked := false
	t.k.trap(t.idx, kzsyscall.Recv, func() {
		s, ptr, snd, parked := t.k.doRecv(t.idx, box)
		blocked = parked
		if !parked {
			size, p, sender = s, ptr, snd
			t.k.queues.Enqueue(t.k.pool, t.idx)
		}
	})
	if blocked {
		// A matching send wrote these onto our own TCB before re-linking
		// us into our ready queue; the channel handoff that woke this
		// goroutine up happens-after that write.
		self := &t.k.pool.Threads[t.idx]
		size, p, sender = self.PendingSize, self.PendingPtr, self.PendingSender
	}
	return size, p, sender
}

// SetInterrupt installs handler as the entry point for vectorType (spec
// §4.6, set_interrupt()).
func (t *Thread) SetInterrupt(vectorType int, handler kzsyscall.HandlerFunc) {
	t.k.trap(t.idx, kzsyscall.SetIntr, func() {
		t.k.vectors.Set(vectorType, handler)
		t.k.queues.Enqueue(t.k.pool, t.idx)
	})
}
