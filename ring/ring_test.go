package ring

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelcore/corert/pagealloc"
)

type fakeMem struct{}

func (fakeMem) Reserve(size uintptr) ([]byte, error)             { return make([]byte, size), nil }
func (fakeMem) Commit(region []byte, offset, size uintptr) error { return nil }
func (fakeMem) Release(region []byte) error                      { return nil }

func TestPushPopFIFOWithinCapacity(t *testing.T) {
	r := New[int](4)
	r.Push(1)
	r.Push(2)
	v, ok := r.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = r.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = r.Pop()
	assert.False(t, ok)
}

func TestPushOverflowsToSliceFallback(t *testing.T) {
	r := New[int](3)
	for i := 0; i < 10; i++ {
		r.Push(i)
	}
	seen := map[int]bool{}
	for i := 0; i < 10; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		seen[v] = true
	}
	assert.Len(t, seen, 10)
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestPushOverflowsToPooledFallback(t *testing.T) {
	pages := pagealloc.New(fakeMem{})
	pool := pagealloc.NewPagedList[int](pages, 4)
	r := New[int](3, WithPooledFallback(pool))

	for i := 0; i < 10; i++ {
		r.Push(i)
	}
	seen := map[int]bool{}
	for i := 0; i < 10; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		seen[v] = true
	}
	assert.Len(t, seen, 10)
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestSemaphoreSignalledOncePerDelivery(t *testing.T) {
	r := New[int](4)
	r.Push(1)
	r.Push(2)
	assert.True(t, r.Semaphore().TryWait())
	assert.True(t, r.Semaphore().TryWait())
	assert.False(t, r.Semaphore().TryWait())
}

func testExactlyOnceDelivery(t *testing.T, mk func() *Ring[int]) {
	r := mk()
	const producers = 8
	const perProducer = 500
	const total = producers * perProducer

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				r.Push(p*perProducer + i)
			}
		}()
	}
	wg.Wait()

	var counts [total]int32
	var consumerWg sync.WaitGroup
	const consumers = 4
	consumerWg.Add(consumers)
	var popped int64
	for c := 0; c < consumers; c++ {
		go func() {
			defer consumerWg.Done()
			for {
				v, ok := r.Pop()
				if !ok {
					if atomic.LoadInt64(&popped) >= total {
						return
					}
					continue
				}
				atomic.AddInt32(&counts[v], 1)
				atomic.AddInt64(&popped, 1)
			}
		}()
	}
	consumerWg.Wait()

	for i, c := range counts {
		require.Equal(t, int32(1), c, "item %d delivered %d times", i, c)
	}
}

func TestExactlyOnceDeliverySliceFallback(t *testing.T) {
	testExactlyOnceDelivery(t, func() *Ring[int] { return New[int](4) })
}

func TestExactlyOnceDeliveryPooledFallback(t *testing.T) {
	testExactlyOnceDelivery(t, func() *Ring[int] {
		pages := pagealloc.New(fakeMem{})
		pool := pagealloc.NewPagedList[int](pages, 16)
		return New[int](4, WithPooledFallback(pool))
	})
}
