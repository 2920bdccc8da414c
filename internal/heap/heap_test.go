package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAllocReturnsUsablePayload(t *testing.T) {
	h := New(4096, 16, 1024)

	p, ok := h.Alloc(18)
	require.True(t, ok)
	require.Len(t, p, 18)

	copy(p, []byte("static memory\n"))
	assert.Equal(t, byte('s'), p[0])
}

func TestAllocSplitsLargerClasses(t *testing.T) {
	h := New(256, 16, 256)

	a, ok := h.Alloc(10)
	require.True(t, ok)
	b, ok := h.Alloc(10)
	require.True(t, ok)

	assert.NotEqual(t, &a[0], &b[0])
}

func TestAllocExhaustion(t *testing.T) {
	h := New(64, 16, 64)

	_, ok := h.Alloc(50)
	require.True(t, ok)

	_, ok = h.Alloc(50)
	assert.False(t, ok, "second large allocation should fail: arena has only one top-class block")
}

func TestFreeReturnsBlockToFreeList(t *testing.T) {
	h := New(4096, 16, 1024)
	before := h.FreeBytesTotal()

	p, ok := h.Alloc(18)
	require.True(t, ok)
	assert.Less(t, h.FreeBytesTotal(), before)

	assert.True(t, h.Free(p))
	assert.Equal(t, before, h.FreeBytesTotal())
}

func TestFreeByteRoundTrip(t *testing.T) {
	h := New(4096, 16, 1024)
	before := h.FreeBytesTotal()

	var ptrs [][]byte
	for i := 0; i < 20; i++ {
		p, ok := h.Alloc(18)
		require.True(t, ok)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		require.True(t, h.Free(p))
	}

	assert.Equal(t, before, h.FreeBytesTotal())
	assert.Equal(t, 0, h.BytesInUse())
}

func TestFreeUnknownPointerFails(t *testing.T) {
	h := New(4096, 16, 1024)
	assert.False(t, h.Free(make([]byte, 8)))
}

func TestFreeByteRoundTripUnderRandomAllocFreeSequences(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := New(4096, 16, 512)
		before := h.FreeBytesTotal()

		var live [][]byte
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if len(live) > 0 && rapid.Bool().Draw(t, "free") {
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "idx")
				require.True(t, h.Free(live[idx]))
				live = append(live[:idx], live[idx+1:]...)
				continue
			}
			size := rapid.IntRange(1, 64).Draw(t, "size")
			if p, ok := h.Alloc(size); ok {
				live = append(live, p)
			}
		}

		for _, p := range live {
			require.True(t, h.Free(p))
		}
		assert.Equal(t, before, h.FreeBytesTotal(), "every satisfied alloc must return its bytes on free")
	})
}
