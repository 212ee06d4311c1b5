package goroutinelocal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetGetPerGoroutine(t *testing.T) {
	var wg sync.WaitGroup
	const n = 32
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			Set(i)
			v, ok := Get()
			assert.True(t, ok)
			assert.Equal(t, i, v)
			Clear()
			_, ok = Get()
			assert.False(t, ok)
		}()
	}
	wg.Wait()
}

func TestWithValueRestoresPrevious(t *testing.T) {
	Set("outer")
	defer Clear()

	WithValue("inner", func() {
		v, ok := Get()
		assert.True(t, ok)
		assert.Equal(t, "inner", v)
	})

	v, ok := Get()
	assert.True(t, ok)
	assert.Equal(t, "outer", v)
}

func TestWithValueClearsWhenNonePreceded(t *testing.T) {
	Clear()
	WithValue("x", func() {})
	_, ok := Get()
	assert.False(t, ok)
}
