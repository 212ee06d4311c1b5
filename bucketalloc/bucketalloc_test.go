package bucketalloc

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMem struct{}

func (fakeMem) Reserve(size uintptr) ([]byte, error) { return make([]byte, size), nil }
func (fakeMem) Commit(region []byte, offset, size uintptr) error { return nil }
func (fakeMem) Release(region []byte) error { return nil }

func TestSizeToBin(t *testing.T) {
	assert.Equal(t, 0, sizeToBin(1))
	assert.Equal(t, 0, sizeToBin(8))
	assert.Equal(t, 1, sizeToBin(9))
	assert.Equal(t, 1, sizeToBin(16))
	assert.Equal(t, 2, sizeToBin(17))
	assert.Equal(t, 3, sizeToBin(64))
	assert.Equal(t, -1, sizeToBin(65))
}

func TestAllocateSmallReusesFreedSlot(t *testing.T) {
	a, err := New(fakeMem{})
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Allocate(8, 8)
	require.NoError(t, err)
	a.Deallocate(p1)

	p2, err := a.Allocate(8, 8)
	require.NoError(t, err)
	assert.Equal(t, p1, p2, "freed small slot should be reused")
}

func TestAllocateLargeRoundTrip(t *testing.T) {
	a, err := New(fakeMem{})
	require.NoError(t, err)
	defer a.Close()

	ptr, err := a.Allocate(1024, 64)
	require.NoError(t, err)
	require.NotNil(t, ptr)

	addr := uintptr(ptr)
	assert.Equal(t, uintptr(0), addr%64)

	buf := unsafe.Slice((*byte)(ptr), 1024)
	buf[0] = 0x7F
	assert.Equal(t, byte(0x7F), buf[0])

	a.Deallocate(ptr)
}

func TestReallocateSameBinKeepsPointer(t *testing.T) {
	a, err := New(fakeMem{})
	require.NoError(t, err)
	defer a.Close()

	ptr, err := a.Allocate(9, 8)
	require.NoError(t, err)
	next, err := a.Reallocate(ptr, 12, 9, 8)
	require.NoError(t, err)
	assert.Equal(t, ptr, next)
}

func TestReallocateDifferentBinCopies(t *testing.T) {
	a, err := New(fakeMem{})
	require.NoError(t, err)
	defer a.Close()

	ptr, err := a.Allocate(8, 8)
	require.NoError(t, err)
	buf := unsafe.Slice((*byte)(ptr), 8)
	for i := range buf {
		buf[i] = byte(i + 1)
	}

	next, err := a.Reallocate(ptr, 64, 8, 8)
	require.NoError(t, err)
	assert.NotEqual(t, ptr, next)

	nextBuf := unsafe.Slice((*byte)(next), 8)
	assert.Equal(t, buf, nextBuf)
}

func TestConcurrentSmallAllocations(t *testing.T) {
	a, err := New(fakeMem{})
	require.NoError(t, err)
	defer a.Close()

	var wg sync.WaitGroup
	const n = 1000
	ptrs := make([]unsafe.Pointer, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			p, err := a.Allocate(16, 8)
			require.NoError(t, err)
			ptrs[i] = p
		}()
	}
	wg.Wait()

	seen := make(map[unsafe.Pointer]bool, n)
	for _, p := range ptrs {
		require.NotNil(t, p)
		assert.False(t, seen[p], "duplicate pointer handed out")
		seen[p] = true
	}
}
