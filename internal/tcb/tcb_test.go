package tcb

import (
	"testing"

	"github.com/kozos-go/kozos/internal/syscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocFindsFirstFree(t *testing.T) {
	p := NewPool(4, 4096)

	idx, ok := p.Alloc()
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	p.Init(idx, "t0", 5, nil, 0, 1024)

	idx2, ok := p.Alloc()
	require.True(t, ok)
	assert.Equal(t, 1, idx2)
}

func TestAllocExhaustionReturnsFalse(t *testing.T) {
	p := NewPool(2, 4096)
	idx, ok := p.Alloc()
	require.True(t, ok)
	p.Init(idx, "t0", 5, nil, 0, 1024)
	idx, ok = p.Alloc()
	require.True(t, ok)
	p.Init(idx, "t1", 5, nil, 1024, 1024)

	_, ok = p.Alloc()
	assert.False(t, ok, "no free TCB: run should fail with -1")
}

func TestFreeZeroesTCB(t *testing.T) {
	p := NewPool(2, 4096)
	idx, _ := p.Alloc()
	p.Init(idx, "worker", 3, []any{1, 2}, 0, 1024)

	p.Free(idx)

	assert.Equal(t, StateFree, p.Threads[idx].State)
	assert.Equal(t, "", p.Threads[idx].Name)
	assert.Nil(t, p.Threads[idx].Argv)

	idx2, ok := p.Alloc()
	require.True(t, ok)
	assert.Equal(t, idx, idx2, "freed slot should be reusable")
}

func TestCarveStackBumpPointerNeverReclaims(t *testing.T) {
	p := NewPool(4, 100)

	base1, ok := p.CarveStack(40)
	require.True(t, ok)
	assert.Equal(t, 0, base1)

	base2, ok := p.CarveStack(40)
	require.True(t, ok)
	assert.Equal(t, 40, base2)

	_, ok = p.CarveStack(40)
	assert.False(t, ok, "arena exhausted: 40+40+40 > 100")
}

func TestNameTruncation(t *testing.T) {
	p := NewPool(1, 4096)
	idx, _ := p.Alloc()
	p.Init(idx, "this-name-is-way-too-long-for-the-buffer", 0, nil, 0, 1024)

	assert.LessOrEqual(t, len(p.Threads[idx].Name), nameMax-1)
}

func TestPriorityZeroConventionRecorded(t *testing.T) {
	p := NewPool(1, 4096)
	idx, _ := p.Alloc()
	p.Init(idx, "masked", 0, nil, 0, 1024)

	assert.Equal(t, 0, p.Threads[idx].Priority)
}

func TestSyscallSlotPersistsAcrossInitCalls(t *testing.T) {
	p := NewPool(1, 4096)
	idx, _ := p.Alloc()
	p.Threads[idx].Syscall = syscall.Param{Type: syscall.Sleep}
	p.Init(idx, "t0", 5, nil, 0, 1024)

	assert.Equal(t, syscall.Sleep, p.Threads[idx].Syscall.Type)
}
