package kozos

import (
	"time"

	"github.com/kozos-go/kozos/internal/kzerr"
	kzsyscall "github.com/kozos-go/kozos/internal/syscall"
	"github.com/kozos-go/kozos/internal/tcb"
)

// Halted reports whether the kernel has transitioned into system_down.
// Safe to call without holding a thread's own trap context.
func (k *Kernel) Halted() bool {
	return k.halted.Load()
}

// removeCurrent unlinks callerIdx from its ready queue, the way a real
// trap entry does before running the requested primitive (spec §4.2:
// the caller stays linked at its queue head while running, and is only
// unlinked here). callerIdx < 0 is a service call from interrupt
// context, which has no current thread to remove.
func (k *Kernel) removeCurrent(callerIdx int) {
	if callerIdx < 0 {
		return
	}
	k.queues.RemoveHead(k.pool, k.pool.Threads[callerIdx].Priority)
}

// trap is the shared shape of every thread-context primitive: it locks
// the kernel, unlinks the caller from its ready queue, runs body, records
// dispatcher metrics, then runs the scheduler and parks the caller's
// goroutine unless the caller itself was the winner or body freed its TCB.
// If body halted the kernel, no scheduler pass runs and the caller blocks
// forever with the lock held. body is responsible
// for re-enqueuing callerIdx if the primitive leaves it runnable; Exit,
// Sleep, and a blocking Recv deliberately do not.
func (k *Kernel) trap(callerIdx int, syscallType kzsyscall.Type, body func()) {
	startedAt := time.Now()

	k.mu.Lock()
	k.removeCurrent(callerIdx)
	body()
	latency := uint64(time.Since(startedAt).Nanoseconds())
	k.metrics.RecordTrap(syscallType, latency)
	k.observer.ObserveTrap(syscallType, latency)

	if k.Halted() {
		select {}
	}
	k.selectAndDispatch(callerIdx, k.pool.Threads[callerIdx].State != tcb.StateFree)
	if k.Halted() {
		select {}
	}
}

// selectAndDispatch runs the scheduler and, if it picks a thread other
// than callerIdx, wakes that thread's goroutine before releasing the
// lock. Signaling the winner before unlocking (rather than after)
// prevents the winner from blocking on a lock its own waker still holds.
// Must be called with k.mu held; always returns with it released, except
// when the scheduler starves, in which case halt keeps it locked forever.
func (k *Kernel) selectAndDispatch(callerIdx int, parkSelf bool) {
	winner, ok := k.queues.Select()
	if !ok {
		k.metrics.RecordStarvation()
		k.observer.ObserveStarvation()
		k.halt(kzerr.New("dispatch", kzerr.CodeFatal, "scheduler found every ready queue empty"))
		return
	}

	k.current = winner
	k.metrics.RecordDispatch()
	k.observer.ObserveDispatch()

	if winner == callerIdx {
		k.mu.Unlock()
		return
	}

	select {
	case k.pool.Threads[winner].Resume <- struct{}{}:
	default:
	}
	k.mu.Unlock()

	if parkSelf && callerIdx >= 0 {
		<-k.pool.Threads[callerIdx].Resume
	}
}

// doExitAndSchedule implements the implicit exit a thread's entry
// function gets simply by returning, mirroring the original startup
// trampoline which always falls into exit() (spec §4.1). Unlike trap, the
// calling goroutine is not parked afterward — it is about to end anyway.
func (k *Kernel) doExitAndSchedule(idx int) {
	k.mu.Lock()
	k.removeCurrent(idx)
	k.doExit(idx)
	k.selectAndDispatch(idx, false)
}

// Interrupt delivers the interrupt registered for vectorType: it looks up
// the installed handler and runs it with the lock held and no current
// thread (spec §4.6), then performs exactly one scheduler pass afterward
// no matter how many service calls the handler issued — scheduling is
// the common interrupt epilogue, not something each service call repeats.
// A priority-0 current thread runs with interrupts masked (spec §5, §8):
// delivery is dropped entirely rather than queued for later, so a masked
// interrupt is simply lost, not deferred.
func (k *Kernel) Interrupt(vectorType int) {
	k.mu.Lock()
	if k.current >= 0 && k.pool.Threads[k.current].Priority == 0 {
		k.metrics.RecordMaskedInterrupt()
		k.observer.ObserveMaskedInterrupt()
		k.logger.WithThread(uint32(k.current)).Debug("interrupt masked by priority-0 thread", "vector", vectorType)
		k.mu.Unlock()
		return
	}

	handler, ok := k.vectors.Get(vectorType)
	if !ok {
		k.mu.Unlock()
		return
	}

	saved := k.current
	k.current = -1
	handler(vectorType, k.serviceCall)
	k.current = saved

	k.selectAndDispatch(-1, false)
}

// SoftErr delivers the kernel-reserved SOFTERR vector's default handler
// against handle: print "<name> DOWN.\n" and destroy the thread (spec §4.6,
// §7 "hardware trap on a bad instruction destroys the offending thread
// with a name DOWN message"). handle is almost always the thread that was
// actually running when the fault was detected, so it is unlinked from its
// ready queue the same way a trapping caller is; a handle reported for a
// thread that was not current is destroyed without touching queue state.
func (k *Kernel) SoftErr(handle int) {
	k.mu.Lock()
	if handle < 0 || handle >= len(k.pool.Threads) {
		k.mu.Unlock()
		return
	}
	t := &k.pool.Threads[handle]
	if t.State == tcb.StateFree {
		k.mu.Unlock()
		return
	}

	k.console.Puts(t.Name + " DOWN.\n")
	k.metrics.RecordSoftError()
	k.observer.ObserveSoftError()

	if handle == k.current {
		k.removeCurrent(handle)
	}
	k.pool.Free(handle) // destroyed with DOWN, not EXIT — doExit prints the wrong message
	k.selectAndDispatch(handle, false)
}

// serviceCall runs one primitive on behalf of an interrupt handler. The
// lock is already held by Interrupt and there is no caller to unlink or
// requeue; unlike trap, it does not run the scheduler itself.
func (k *Kernel) serviceCall(p kzsyscall.Param) kzsyscall.Param {
	k.metrics.RecordServiceCall(p.Type)
	k.observer.ObserveServiceCall(p.Type)

	switch p.Type {
	case kzsyscall.Run:
		entry, _ := p.Entry.(ThreadFunc)
		p.Ret = k.doRun(p.Name, p.Priority, p.StackSz, entry, p.Argv)
	case kzsyscall.Wakeup:
		k.doWakeup(p.Handle)
	case kzsyscall.ChPri:
		p.Ret = k.doChPri(p.Handle, p.Priority)
	case kzsyscall.KMalloc:
		p.Ret = k.doKMalloc(p.Size)
	case kzsyscall.KMFree:
		k.doKMFree(p.Ptr)
	case kzsyscall.Send:
		p.Ret = k.doSend(-1, p.Box, p.Size, p.Ptr)
	case kzsyscall.SetIntr:
		k.vectors.Set(p.VectorType, p.Handler)
	default:
		// Exit, Wait, Sleep, GetID, and Recv all require a blocked or
		// terminating current thread, which a service call has none of.
	}
	return p
}
