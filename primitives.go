package kozos

import (
	"github.com/kozos-go/kozos/internal/kzerr"
	"github.com/kozos-go/kozos/internal/mbox"
	"github.com/kozos-go/kozos/internal/tcb"
)

// doRun allocates and starts a new thread, returning its handle or -1 if
// no TCB or stack space remains (spec §4.1, run()). Assumes k.mu held.
func (k *Kernel) doRun(name string, priority, stackSize int, entry ThreadFunc, argv []any) int {
	idx, ok := k.pool.Alloc()
	if !ok {
		return -1
	}
	if stackSize == 0 {
		stackSize = 4096
	}
	base, ok := k.pool.CarveStack(stackSize)
	if !ok {
		return -1
	}
	k.pool.Init(idx, name, priority, argv, base, stackSize)
	k.queues.Enqueue(k.pool, idx)
	go k.runThread(idx, entry)
	return idx
}

// doExit prints "<name> EXIT.\n" and zeroes the thread's TCB, freeing its
// slot for reuse (spec §4.1: "prints ... and zeroes the whole TCB"). The
// thread is not requeued. Assumes k.mu held.
func (k *Kernel) doExit(idx int) {
	k.console.Puts(k.pool.Threads[idx].Name + " EXIT.\n")
	k.pool.Free(idx)
}

// doWait leaves the caller ready to immediately re-compete for dispatch
// (spec §4.2, wait()). Assumes k.mu held.
func (k *Kernel) doWait(idx int) {
	k.queues.Enqueue(k.pool, idx)
}

// doSleep suspends idx outside every ready queue until a matching
// Wakeup (spec §4.2, sleep()). Assumes k.mu held.
func (k *Kernel) doSleep(idx int) {
	k.pool.Threads[idx].State = tcb.StateBlocked
}

// doWakeup makes a sleeping thread runnable again. Waking a thread that
// is not actually asleep (free, already running, or parked in recv) is a
// no-op (spec §4.2, wakeup()). Assumes k.mu held.
func (k *Kernel) doWakeup(handle int) {
	if handle < 0 || handle >= len(k.pool.Threads) {
		return
	}
	t := &k.pool.Threads[handle]
	if t.State != tcb.StateBlocked || t.Box >= 0 {
		return
	}
	t.State = tcb.StateRunnable
	k.queues.Enqueue(k.pool, handle)
}

// doChPri changes idx's scheduling priority and returns its previous
// value (spec §4.2, chpri()). Assumes k.mu held; the caller re-enqueues
// idx afterward, which picks up the new priority's queue.
func (k *Kernel) doChPri(idx int, priority int) int {
	old := k.pool.Threads[idx].Priority
	k.pool.Threads[idx].Priority = priority
	return old
}

// doKMalloc allocates n bytes from the kernel heap, returning nil if the
// heap cannot satisfy the request (spec §4.4, kz_kmalloc()). Assumes
// k.mu held.
func (k *Kernel) doKMalloc(n int) []byte {
	p, ok := k.heap.Alloc(n)
	if !ok {
		k.metrics.RecordHeapAllocFail()
		return nil
	}
	k.metrics.RecordHeapAlloc(int64(len(p)))
	return p
}

// doKMFree releases a slice previously returned by doKMalloc (spec §4.4,
// kz_kmfree()). Assumes k.mu held.
func (k *Kernel) doKMFree(p []byte) {
	n := len(p)
	if k.heap.Free(p) {
		k.metrics.RecordHeapAlloc(-int64(n))
	}
}

// doSend delivers a message to boxID, either straight to an already
// parked receiver (rendezvous) or onto the box's FIFO (spec §4.5,
// send()). senderIdx is -1 for a service call. Assumes k.mu held.
func (k *Kernel) doSend(senderIdx int, boxID int, size int, p []byte) int {
	b := k.boxes.Get(boxID)
	if b == nil {
		return -1
	}

	if b.HasReceiver() {
		receiver := b.Receiver()
		rt := &k.pool.Threads[receiver]
		rt.PendingSize = size
		rt.PendingPtr = p
		rt.PendingSender = senderIdx
		rt.State = tcb.StateRunnable
		rt.Box = -1
		b.Unpark()
		k.queues.Enqueue(k.pool, receiver)
		k.metrics.RecordRendezvous()
		k.logger.WithBox(boxID).WithThread(uint32(receiver)).Debug("rendezvous delivery", "sender", senderIdx, "size", size)
		return size
	}

	b.Enqueue(mbox.Envelope{Sender: senderIdx, Size: size, Ptr: p})
	k.metrics.RecordBoxEnqueue()
	k.logger.WithBox(boxID).Debug("envelope queued", "sender", senderIdx, "size", size)
	return size
}

// doRecv attempts to receive from boxID. If a message is already queued
// it is delivered immediately (blocked == false) and the caller is left for
// its trap wrapper to re-enqueue; otherwise the caller is
// parked as the box's receiver (blocked == true) and its eventual result
// is written onto its own TCB by a later doSend. A box that already has a
// parked receiver is a fatal protocol violation (spec §4.5, §7). Assumes
// k.mu held.
func (k *Kernel) doRecv(idx int, boxID int) (size int, p []byte, sender int, blocked bool) {
	b := k.boxes.Get(boxID)
	if b == nil {
		return -1, nil, -1, false
	}

	if b.HasReceiver() {
		k.halt(kzerr.NewBoxError("recv", boxID, kzerr.CodeFatal, "box already has a parked receiver"))
		return -1, nil, -1, false
	}

	if env, ok := b.Dequeue(); ok {
		k.metrics.RecordBoxDequeue()
		return env.Size, env.Ptr, env.Sender, false
	}

	b.Park(idx)
	k.pool.Threads[idx].State = tcb.StateBlocked
	k.pool.Threads[idx].Box = boxID
	k.logger.WithBox(boxID).WithThread(uint32(idx)).Debug("recv parked, awaiting rendezvous")
	return 0, nil, -1, true
}
