// Package ossync provides the OS-level synchronization primitives spec.md
// §4.B calls for: a non-reentrant Mutex, a CondVar, a counting Semaphore
// with multi-wait, and a Thread abstraction with affinity control. These
// sit one layer below job.Mutex (the fiber-aware mutex built on Signal):
// ossync.Mutex guards the scheduler's own short critical sections
// (System.mutex, the ring buffer's fallback lock, arena commit), never
// user job code directly.
package ossync

import "sync"

// Mutex is a non-reentrant exclusive lock, named Enter/Exit to match
// spec.md's vocabulary and the fiber-aware job.Mutex it parallels.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Enter() { m.mu.Lock() }
func (m *Mutex) Exit()  { m.mu.Unlock() }

// Guard locks mu for the lifetime of the returned value's scope, mirroring
// job.MutexGuard / the original's Lumix::MutexGuard.
type Guard struct {
	m *Mutex
}

func NewGuard(m *Mutex) Guard {
	m.Enter()
	return Guard{m: m}
}

func (g Guard) Release() { g.m.Exit() }
