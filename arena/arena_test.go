package arena

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelcore/corert/osmem"
)

type fakeMem struct {
	mu       sync.Mutex
	reserved []byte
}

func (f *fakeMem) Reserve(size uintptr) ([]byte, error) {
	f.reserved = make([]byte, size)
	return f.reserved, nil
}

func (f *fakeMem) Commit(region []byte, offset, size uintptr) error { return nil }
func (f *fakeMem) Release(region []byte) error                      { return nil }

func TestAllocateBumpsAndAligns(t *testing.T) {
	a, err := New(&fakeMem{}, 1<<20)
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Allocate(10, 1)
	require.NoError(t, err)
	p2, err := a.Allocate(16, 16)
	require.NoError(t, err)

	assert.Equal(t, uintptr(0), uintptr(p2)%16)
	assert.NotEqual(t, p1, p2)
}

func TestResetReusesSpace(t *testing.T) {
	a, err := New(&fakeMem{}, 4096)
	require.NoError(t, err)
	defer a.Close()

	p1, err := a.Allocate(100, 1)
	require.NoError(t, err)
	a.Reset()
	p2, err := a.Allocate(100, 1)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestCommitGrowsLazily(t *testing.T) {
	a, err := New(&fakeMem{}, 3*osmem.PageSize)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, uint32(0), a.CommittedBytes())
	_, err = a.Allocate(10, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(osmem.PageSize), a.CommittedBytes())

	_, err = a.Allocate(osmem.PageSize*2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(3*osmem.PageSize), a.CommittedBytes())
}

func TestOutOfSpacePanics(t *testing.T) {
	a, err := New(&fakeMem{}, 16)
	require.NoError(t, err)
	defer a.Close()

	assert.Panics(t, func() {
		_, _ = a.Allocate(32, 1)
	})
}

func TestReallocateNonNilPanics(t *testing.T) {
	a, err := New(&fakeMem{}, 4096)
	require.NoError(t, err)
	defer a.Close()

	p, err := a.Allocate(16, 1)
	require.NoError(t, err)
	assert.Panics(t, func() {
		_, _ = a.Reallocate(p, 32, 16, 1)
	})
}

func TestReallocateNilGrows(t *testing.T) {
	a, err := New(&fakeMem{}, 4096)
	require.NoError(t, err)
	defer a.Close()

	ptr, err := a.Reallocate(nil, 64, 0, 8)
	require.NoError(t, err)
	assert.NotNil(t, ptr)
}

func TestConcurrentAllocateNeverOverlaps(t *testing.T) {
	a, err := New(&fakeMem{}, 1<<20)
	require.NoError(t, err)
	defer a.Close()

	const n = 500
	const size = 32
	ptrs := make([]unsafe.Pointer, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			p, err := a.Allocate(size, 8)
			require.NoError(t, err)
			ptrs[i] = p
		}()
	}
	wg.Wait()

	seen := make(map[uintptr]bool, n)
	for _, p := range ptrs {
		addr := uintptr(p)
		for off := uintptr(0); off < size; off++ {
			assert.False(t, seen[addr+off])
			seen[addr+off] = true
		}
	}
}
