package stackalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFallback is a minimal alloc.Interface double backed by Go's own
// allocator.
type fakeFallback struct{}

func (fakeFallback) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	buf := make([]byte, size)
	return unsafe.Pointer(&buf[0]), nil
}
func (fakeFallback) Deallocate(ptr unsafe.Pointer) {}
func (fakeFallback) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	buf := make([]byte, newSize)
	return unsafe.Pointer(&buf[0]), nil
}

func TestAllocateUsesInlineSlotFirst(t *testing.T) {
	s := NewStack(64, 8, fakeFallback{})
	ptr, err := s.Allocate(32, 8)
	require.NoError(t, err)
	assert.Equal(t, s.memPtr(), ptr)
}

func TestSecondAllocateSpillsToFallback(t *testing.T) {
	s := NewStack(64, 8, fakeFallback{})
	p1, err := s.Allocate(32, 8)
	require.NoError(t, err)
	p2, err := s.Allocate(32, 8)
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
	assert.Equal(t, s.memPtr(), p1)
	assert.NotEqual(t, s.memPtr(), p2)
}

func TestOversizeGoesToFallback(t *testing.T) {
	s := NewStack(8, 8, fakeFallback{})
	ptr, err := s.Allocate(64, 8)
	require.NoError(t, err)
	assert.NotEqual(t, s.memPtr(), ptr)
}

func TestDeallocateFreesInlineSlotForReuse(t *testing.T) {
	s := NewStack(16, 8, fakeFallback{})
	p1, err := s.Allocate(8, 8)
	require.NoError(t, err)
	s.Deallocate(p1)

	p2, err := s.Allocate(8, 8)
	require.NoError(t, err)
	assert.Equal(t, s.memPtr(), p2)
	s.Deallocate(p2)
	s.Close()
}

func TestReallocateGrowFromInlineMovesToFallback(t *testing.T) {
	s := NewStack(8, 8, fakeFallback{})
	ptr, err := s.Allocate(8, 8)
	require.NoError(t, err)
	buf := unsafe.Slice((*byte)(ptr), 8)
	for i := range buf {
		buf[i] = byte(i)
	}

	next, err := s.Reallocate(ptr, 64, 8, 8)
	require.NoError(t, err)
	assert.NotEqual(t, s.memPtr(), next)

	nextBuf := unsafe.Slice((*byte)(next), 8)
	assert.Equal(t, buf, nextBuf)
	assert.False(t, s.allocated)
}

func TestReallocateShrinkBackIntoInline(t *testing.T) {
	s := NewStack(16, 8, fakeFallback{})
	_, err := s.Allocate(8, 8) // occupy inline slot
	require.NoError(t, err)
	large, err := s.Allocate(64, 8) // spills to fallback
	require.NoError(t, err)
	s.Deallocate(s.memPtr()) // free the inline slot

	back, err := s.Reallocate(large, 8, 64, 8)
	require.NoError(t, err)
	assert.Equal(t, s.memPtr(), back)
}

func TestCloseWithInlineSlotStillAllocatedPanics(t *testing.T) {
	s := NewStack(8, 8, fakeFallback{})
	_, err := s.Allocate(8, 8)
	require.NoError(t, err)
	assert.Panics(t, func() { s.Close() })
}
