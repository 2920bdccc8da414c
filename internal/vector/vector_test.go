package vector

import (
	"testing"

	"github.com/kozos-go/kozos/internal/syscall"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservedVectorsHaveDistinctSlots(t *testing.T) {
	assert.NotEqual(t, Syscall, SoftErr)
	assert.Equal(t, 2, NumReserved)
}

func TestSetAndGetHandler(t *testing.T) {
	r := NewRegistry(8)

	called := false
	h := func(vectorType int, serviceCall func(syscall.Param) syscall.Param) {
		called = true
	}

	require.True(t, r.Set(SoftErr, h))

	got, ok := r.Get(SoftErr)
	require.True(t, ok)
	got(SoftErr, nil)
	assert.True(t, called)
}

func TestGetUnsetVectorReturnsFalse(t *testing.T) {
	r := NewRegistry(8)
	_, ok := r.Get(3)
	assert.False(t, ok)
}

func TestSetOutOfRangeFails(t *testing.T) {
	r := NewRegistry(4)
	assert.False(t, r.Set(-1, nil))
	assert.False(t, r.Set(4, nil))
}
