package fiber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitchToAndYieldRoundTrip(t *testing.T) {
	carrier := InitThread()
	var trace []string

	var worker *Handle
	worker = Create(64*1024, func() {
		trace = append(trace, "enter")
		Yield(worker, carrier)
		trace = append(trace, "resumed")
	}, nil)

	SwitchTo(carrier, worker)
	assert.Equal(t, []string{"enter"}, trace)
	assert.False(t, worker.IsDead())

	SwitchTo(carrier, worker)
	assert.Equal(t, []string{"enter", "resumed"}, trace)

	done := make(chan struct{})
	go func() {
		for !worker.IsDead() {
			time.Sleep(time.Millisecond)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker fiber never reported finished")
	}

	Destroy(worker)
}

func TestCreatePassesParam(t *testing.T) {
	carrier := InitThread()
	var got any
	var h *Handle
	h = Create(4096, func() {
		got = h.Param()
	}, 42)
	SwitchTo(carrier, h)
	require.Equal(t, 42, got)
}

func TestDestroyLiveFiberPanics(t *testing.T) {
	carrier := InitThread()
	var h *Handle
	block := make(chan struct{})
	h = Create(4096, func() {
		Yield(h, carrier)
		<-block
	}, nil)
	SwitchTo(carrier, h)

	assert.Panics(t, func() {
		Destroy(h)
	})
	close(block)
}

func TestMultipleFibersRoundRobin(t *testing.T) {
	carrier := InitThread()
	var order []int

	var a, b *Handle
	a = Create(4096, func() {
		order = append(order, 1)
		Yield(a, carrier)
		order = append(order, 3)
		Yield(a, carrier)
	}, nil)
	b = Create(4096, func() {
		order = append(order, 2)
		Yield(b, carrier)
		order = append(order, 4)
		Yield(b, carrier)
	}, nil)

	SwitchTo(carrier, a)
	SwitchTo(carrier, b)
	SwitchTo(carrier, a)
	SwitchTo(carrier, b)

	assert.Equal(t, []int{1, 2, 3, 4}, order)
}
