// Package goroutinelocal provides goroutine-affine storage, the Go
// analogue of the thread_local "active tag" pointer that
// alloc.TagAllocator relies on (spec.md §4.H, §9). Go gives no supported
// way to attach data to "the current goroutine" the way a real
// thread-local would; this package uses the documented idiom of parsing
// the goroutine id out of runtime.Stack, keyed into a sync.Map. It is
// deliberately narrow in scope: callers that can thread a value through
// an explicit parameter or context.Context should do that instead. It
// exists only because alloc.Interface's allocate/deallocate signatures,
// ported from spec.md, carry no such parameter.
package goroutinelocal

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var store sync.Map // map[int64]any

// id returns the calling goroutine's numeric id, parsed out of the
// runtime-provided stack trace header ("goroutine 123 [running]: ...").
// This is the standard, fully-supported (if inelegant) way to obtain a
// goroutine id in Go without cgo or runtime patches.
func id() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return -1
	}
	buf = buf[len(prefix):]
	sp := bytes.IndexByte(buf, ' ')
	if sp < 0 {
		return -1
	}
	v, err := strconv.ParseInt(string(buf[:sp]), 10, 64)
	if err != nil {
		return -1
	}
	return v
}

// Set stores v as the calling goroutine's value.
func Set(v any) {
	store.Store(id(), v)
}

// Get returns the calling goroutine's current value and whether one was
// set.
func Get() (any, bool) {
	return store.Load(id())
}

// Clear removes the calling goroutine's value.
func Clear() {
	store.Delete(id())
}

// WithValue sets v for the duration of fn, restoring whatever value (or
// absence of one) preceded the call. Provided for deterministic tests, as
// called for in spec.md §9 ("provide a scoped setter for tests").
func WithValue(v any, fn func()) {
	prev, had := Get()
	Set(v)
	defer func() {
		if had {
			Set(prev)
		} else {
			Clear()
		}
	}()
	fn()
}
