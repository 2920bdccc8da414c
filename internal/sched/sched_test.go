package sched

import (
	"testing"

	"github.com/kozos-go/kozos/internal/tcb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestPool(n int) *tcb.Pool {
	p := tcb.NewPool(n, 4096)
	for i := 0; i < n; i++ {
		idx, _ := p.Alloc()
		p.Init(idx, "t", 5, nil, 0, 256)
	}
	return p
}

func TestEnqueueSetsReadyAndSelectReturnsHead(t *testing.T) {
	p := newTestPool(3)
	q := New(16)

	q.Enqueue(p, 0)
	q.Enqueue(p, 1)
	q.Enqueue(p, 2)

	assert.True(t, p.Threads[0].IsReady())

	head, ok := q.Select()
	require.True(t, ok)
	assert.Equal(t, 0, head, "FIFO: first enqueued is head")
}

func TestRemoveHeadClearsReadyAndUnlinks(t *testing.T) {
	p := newTestPool(2)
	q := New(16)
	q.Enqueue(p, 0)
	q.Enqueue(p, 1)

	idx, ok := q.RemoveHead(p, 5)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.False(t, p.Threads[0].IsReady())

	head, ok := q.Select()
	require.True(t, ok)
	assert.Equal(t, 1, head)
}

func TestLowestPriorityWins(t *testing.T) {
	p := tcb.NewPool(2, 4096)
	idxLow, _ := p.Alloc()
	p.Init(idxLow, "low", 9, nil, 0, 256)
	idxHigh, _ := p.Alloc()
	p.Init(idxHigh, "high", 1, nil, 0, 256)

	q := New(16)
	q.Enqueue(p, idxLow)
	q.Enqueue(p, idxHigh)

	head, ok := q.Select()
	require.True(t, ok)
	assert.Equal(t, idxHigh, head, "priority 1 preempts priority 9")
}

func TestStarvationWhenAllQueuesEmpty(t *testing.T) {
	q := New(16)
	_, ok := q.Select()
	assert.False(t, ok)
}

func TestReadyInvariantAcrossEnqueueRemove(t *testing.T) {
	p := newTestPool(1)
	q := New(16)

	q.Enqueue(p, 0)
	assert.True(t, p.Threads[0].IsReady())
	head := q.Head(p.Threads[0].Priority)
	assert.Equal(t, 0, head)

	q.RemoveHead(p, p.Threads[0].Priority)
	assert.False(t, p.Threads[0].IsReady())
	assert.Equal(t, -1, q.Head(p.Threads[0].Priority))
}

// TestReadyInvariantUnderRandomOps checks READY(T) <=> T is linked into
// its priority's queue (spec invariant) across randomized sequences of
// enqueue/remove-head spread across several priorities.
func TestReadyInvariantUnderRandomOps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		const n = 6
		const priorities = 4
		p := tcb.NewPool(n, 4096)
		for i := 0; i < n; i++ {
			idx, _ := p.Alloc()
			p.Init(idx, "t", i%priorities, nil, 0, 256)
		}
		q := New(priorities)

		steps := rapid.IntRange(1, 50).Draw(t, "steps")
		for s := 0; s < steps; s++ {
			idx := rapid.IntRange(0, n-1).Draw(t, "idx")
			if p.Threads[idx].IsReady() {
				continue // already linked; enqueuing again would corrupt the FIFO
			}
			if rapid.Bool().Draw(t, "enqueueOrRemove") {
				q.Enqueue(p, idx)
				assert.True(t, p.Threads[idx].IsReady())
			} else {
				prio := rapid.IntRange(0, priorities-1).Draw(t, "prio")
				removed, ok := q.RemoveHead(p, prio)
				if ok {
					assert.False(t, p.Threads[removed].IsReady())
				}
			}
		}

		for prio := 0; prio < priorities; prio++ {
			for idx := q.Head(prio); idx != -1; idx = p.Threads[idx].Next {
				assert.True(t, p.Threads[idx].IsReady(), "every linked TCB must have its READY bit set")
				assert.Equal(t, prio, p.Threads[idx].Priority)
			}
		}
	})
}
