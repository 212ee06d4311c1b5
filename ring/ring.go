// Package ring implements the lock-free MPMC bounded ring buffer spec.md
// §4.I calls for, a direct generic port of
// original_source/src/core/ring_buffer.h's RingBuffer<T, CAPACITY>: a
// per-slot sequence number drives lock-free push/pop, with a
// mutex-guarded LIFO used as overflow storage when the ring is full (push)
// or observed empty racing a concurrent pop (pop).
package ring

import (
	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/corelog"
	"github.com/kestrelcore/corert/ossync"
	"github.com/kestrelcore/corert/pagealloc"
)

type slot[T any] struct {
	value T
	seq   atomicx.Int32
}

// Ring is a bounded MPMC queue. Unlike the original template, capacity is
// a constructor argument (spec.md explicitly allows any positive int, not
// just a power of two).
type Ring[T any] struct {
	slots    []slot[T]
	capacity int32
	rd       atomicx.Int32
	wr       atomicx.Int32

	mu            ossync.Mutex
	fallback      []T
	pooled        *pagealloc.PagedList[T]
	pooledCursor  int

	sem *ossync.Semaphore
}

// Option configures a Ring at construction.
type Option[T any] func(*Ring[T])

// WithPooledFallback backs the ring's overflow storage with a
// pagealloc.PagedList instead of a plain growable slice, avoiding the
// slice's grow/copy churn for callers that push to the fallback path
// often. The job package's work queues use the default slice fallback.
// Pooled fallback is append-only: once an item is appended it is not
// physically removed from the backing pages (see popFallback), matching
// the trade spec.md leaves open between "simplicity" and
// "arena-backed story."
func WithPooledFallback[T any](pool *pagealloc.PagedList[T]) Option[T] {
	return func(r *Ring[T]) { r.pooled = pool }
}

// New creates a Ring with room for capacity items in its lock-free path.
// capacity must be greater than 2, matching the original's
// static_assert(CAPACITY > 2).
func New[T any](capacity int, opts ...Option[T]) *Ring[T] {
	if capacity <= 2 {
		panic("ring: capacity must be greater than 2")
	}
	r := &Ring[T]{
		slots:    make([]slot[T], capacity),
		capacity: int32(capacity),
		sem:      ossync.NewSemaphore(0),
	}
	for i := range r.slots {
		r.slots[i].seq.Store(int32(i))
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Semaphore returns the ring's paired counting semaphore, signalled once
// per successful Push (ring or fallback) and consumed once per
// successful Pop, exactly spec.md's invariant. Callers that want to
// block until work is available (rather than spin-polling Pop) wait on
// this directly, or via ossync.WaitMultiple against two rings' semaphores.
func (r *Ring[T]) Semaphore() *ossync.Semaphore { return r.sem }

// Push inserts obj, taking the lock-free fast path when a slot is
// immediately available and falling back to the mutex-guarded overflow
// store when the ring is observed full.
func (r *Ring[T]) Push(obj T) {
	pos := r.wr.Load()
	for {
		j := &r.slots[pos%r.capacity]
		seq := j.seq.Load()
		switch {
		case seq < pos:
			r.pushFallback(obj)
			return
		case seq == pos:
			if r.wr.CompareAndSwap(pos, pos+1) {
				j.value = obj
				j.seq.Store(pos + 1)
				r.sem.Signal(1)
				return
			}
		default:
			pos = r.wr.Load()
		}
	}
}

func (r *Ring[T]) pushFallback(obj T) {
	r.mu.Enter()
	if r.pooled != nil {
		r.pooled.Append(obj)
	} else {
		r.fallback = append(r.fallback, obj)
	}
	r.mu.Exit()
	r.sem.Signal(1)

	if logger := corelog.Global(); logger.Enabled(corelog.LevelWarn) {
		logger.Log(corelog.Entry{
			Level:    corelog.LevelWarn,
			Category: "ring",
			Message:  "ring full, spilled to fallback store",
			Fields:   map[string]any{"capacity": r.capacity},
		})
	}
}

// Pop removes and returns one item, reporting false only when both the
// lock-free ring and the fallback store are empty.
func (r *Ring[T]) Pop() (T, bool) {
	for {
		pos := r.rd.Load()
		j := &r.slots[pos%r.capacity]
		seq := j.seq.Load()
		switch {
		case seq < pos+1:
			return r.popFallback()
		case seq == pos+1:
			if r.rd.CompareAndSwap(pos, pos+1) {
				obj := j.value
				j.seq.Store(pos + r.capacity)
				r.sem.TryWait()
				return obj, true
			}
		default:
			// somebody popped before us, retry
		}
	}
}

// popFallback drains the overflow store. With a plain slice it behaves
// like the original's Array<T>::pop() (LIFO, pop-back). With a pooled
// PagedList, true removal isn't possible (PagedList is append-only by
// design, see pagealloc.PagedList.Append), so popFallback instead walks
// forward from a running cursor (FIFO) — an intentional, documented
// deviation from the original's LIFO fallback order; job work items
// carry no ordering guarantee spec.md depends on, so FIFO-vs-LIFO here
// is invisible to every caller in this module.
func (r *Ring[T]) popFallback() (T, bool) {
	var zero T
	r.mu.Enter()
	defer r.mu.Exit()
	if r.pooled != nil {
		v, ok := r.pooled.At(r.pooledCursor)
		if !ok {
			return zero, false
		}
		r.pooledCursor++
		r.sem.TryWait()
		return v, true
	}
	n := len(r.fallback)
	if n == 0 {
		return zero, false
	}
	obj := r.fallback[n-1]
	r.fallback = r.fallback[:n-1]
	r.sem.TryWait()
	return obj, true
}
