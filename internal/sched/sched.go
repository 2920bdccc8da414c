// Package sched implements the ready-queue array and scheduler selection
// described in spec §4.2: an array of FIFO queues indexed by priority,
// with the invariant that a TCB is linked into queue i iff its READY bit
// is set and its priority equals i.
package sched

import "github.com/kozos-go/kozos/internal/tcb"

// Queues holds one FIFO (head/tail index pair) per priority level.
// Indices name slots in the tcb.Pool this Queues was built against;
// -1 is the empty-queue sentinel.
type Queues struct {
	heads []int
	tails []int
}

// New creates an empty Queues for the given number of priority levels.
func New(priorityNum int) *Queues {
	q := &Queues{
		heads: make([]int, priorityNum),
		tails: make([]int, priorityNum),
	}
	for i := range q.heads {
		q.heads[i] = -1
		q.tails[i] = -1
	}
	return q
}

// Enqueue appends idx to the tail of its priority's queue and sets its
// READY bit. Used by run, yield, wakeup, getid, chpri, and every
// primitive that must leave the caller runnable (spec §4.3).
func (q *Queues) Enqueue(pool *tcb.Pool, idx int) {
	t := &pool.Threads[idx]
	t.Next = -1
	t.SetReady(true)
	p := t.Priority

	if q.tails[p] == -1 {
		q.heads[p] = idx
		q.tails[p] = idx
		return
	}
	pool.Threads[q.tails[p]].Next = idx
	q.tails[p] = idx
}

// RemoveHead unlinks the head of priority p's queue, clearing its READY
// bit, and returns its index. It is the dispatcher's "I am servicing you"
// step (spec §4.3): the trap entry always removes current this way, since
// the concurrency invariants guarantee current is the head of its own
// priority's queue. A service call has no current and removes nothing.
func (q *Queues) RemoveHead(pool *tcb.Pool, p int) (int, bool) {
	idx := q.heads[p]
	if idx == -1 {
		return -1, false
	}
	next := pool.Threads[idx].Next
	q.heads[p] = next
	if next == -1 {
		q.tails[p] = -1
	}
	pool.Threads[idx].Next = -1
	pool.Threads[idx].SetReady(false)
	return idx, true
}

// Select returns the head of the lowest-numbered non-empty ready queue,
// without unlinking it (a running thread stays linked into its own
// queue; only a trap entry unlinks via RemoveHead). Returns
// (-1, false) if every queue is empty — callers must treat that as
// scheduler starvation (spec §4.2, §7: fatal, no idle fallback).
func (q *Queues) Select() (int, bool) {
	for _, head := range q.heads {
		if head != -1 {
			return head, true
		}
	}
	return -1, false
}

// Head returns the current head index of priority p's queue, or -1.
func (q *Queues) Head(p int) int {
	return q.heads[p]
}
