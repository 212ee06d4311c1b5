package ossync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexExcludes(t *testing.T) {
	var m Mutex
	var counter int
	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			g := NewGuard(&m)
			defer g.Release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, n, counter)
}

func TestCondVarWakeOne(t *testing.T) {
	var m Mutex
	cv := NewCondVar(&m)
	woke := make(chan struct{})

	m.Enter()
	go func() {
		m.Enter()
		defer m.Exit()
		cv.SleepOn()
		close(woke)
	}()

	// Give the goroutine a chance to block on SleepOn before signalling.
	m.Exit()
	time.Sleep(10 * time.Millisecond)

	m.Enter()
	cv.WakeOne()
	m.Exit()

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for wakeup")
	}
}

func TestSemaphoreWaitSignal(t *testing.T) {
	s := NewSemaphore(0)
	assert.False(t, s.TryWait())
	s.Signal(1)
	assert.True(t, s.TryWait())
	assert.False(t, s.TryWait())

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	s.Signal(1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned")
	}
}

func TestWaitMultiplePicksReady(t *testing.T) {
	a := NewSemaphore(0)
	b := NewSemaphore(1)
	require.Equal(t, 1, WaitMultiple(a, b))
	assert.False(t, b.TryWait())

	a.Signal(1)
	require.Equal(t, 0, WaitMultiple(a, b))
}

func TestWaitMultipleBlocksUntilSignalled(t *testing.T) {
	a := NewSemaphore(0)
	b := NewSemaphore(0)
	result := make(chan int, 1)
	go func() {
		result <- WaitMultiple(a, b)
	}()
	time.Sleep(10 * time.Millisecond)
	b.Signal(1)
	select {
	case r := <-result:
		assert.Equal(t, 1, r)
	case <-time.After(time.Second):
		t.Fatal("WaitMultiple never returned")
	}
}

func TestWaitMultipleStress(t *testing.T) {
	a := NewSemaphore(0)
	b := NewSemaphore(0)
	const total = 2000
	var got0, got1 atomic.Int64
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			switch WaitMultiple(a, b) {
			case 0:
				got0.Add(1)
			case 1:
				got1.Add(1)
			}
		}()
	}
	half := total / 2
	for i := 0; i < half; i++ {
		a.Signal(1)
	}
	for i := 0; i < total-half; i++ {
		b.Signal(1)
	}
	wg.Wait()
	assert.Equal(t, int64(half), got0.Load())
	assert.Equal(t, int64(total-half), got1.Load())
}

func TestThreadLifecycle(t *testing.T) {
	ran := make(chan struct{})
	th, err := Create("worker-0", false, func() {
		close(ran)
	})
	require.NoError(t, err)
	<-ran
	th.Destroy()
	assert.True(t, th.IsFinished())
	assert.False(t, th.IsRunning())
}
