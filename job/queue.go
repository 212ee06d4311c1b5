package job

import (
	"github.com/kestrelcore/corert/ossync"
	"github.com/kestrelcore/corert/ring"
)

// WorkQueue wraps a ring.Ring[Work] with the capacities spec.md assigns:
// 4 for each per-worker queue, 64 for the single global queue.
type WorkQueue struct {
	ring     *ring.Ring[Work]
	capacity int
}

func newWorkQueue(capacity int) *WorkQueue {
	return &WorkQueue{ring: ring.New[Work](capacity), capacity: capacity}
}

// Capacity returns the ring's fixed slot count (overflow beyond this is
// handled by the ring's fallback path, not rejected).
func (q *WorkQueue) Capacity() int { return q.capacity }

func (q *WorkQueue) Push(w Work) { q.ring.Push(w) }

func (q *WorkQueue) Pop() (Work, bool) { return q.ring.Pop() }

func (q *WorkQueue) Semaphore() *ossync.Semaphore { return q.ring.Semaphore() }
