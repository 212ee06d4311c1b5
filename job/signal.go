package job

import (
	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/invariant"
)

// Signal is a completion latch: a counter plus a generation id (used only
// for diagnostics) and a linked list of fibers parked waiting for the
// counter to reach zero. Ported 1:1 from job_system.h's Signal.
type Signal struct {
	waitor     *Waitor
	counter    atomicx.Int32
	generation int32
}

// Waitor is one node in a Signal's intrusive linked list of parked
// waiters. Most waiters are job fibers parked via Wait, rescheduled onto
// a WorkQueue when the signal fires; a Waitor with fiber == nil
// represents a plain goroutine outside the job system (e.g. the
// application's main goroutine calling job.Wait after submitting work),
// woken by closing ch instead — the original's equivalent of a
// non-worker thread blocking on a job counter.
type Waitor struct {
	next  *Waitor
	fiber *FiberDecl
	ch    chan struct{}
}

// Mutex is the fiber-aware exclusive lock built on Signal: Enter spins a
// bounded number of times attempting setRedEx before parking the calling
// fiber, matching the original's enter()/exit() pair.
type Mutex struct {
	signal Signal
}

// MutexGuard locks mu for the lifetime of the guard's scope, the Go
// rendering of the original's RAII MutexGuard.
type MutexGuard struct {
	mu *Mutex
}

// NewMutexGuard enters mu and returns a guard; call Release (or defer it)
// to exit.
func NewMutexGuard(mu *Mutex) MutexGuard {
	Enter(mu)
	return MutexGuard{mu: mu}
}

func (g MutexGuard) Release() { Exit(g.mu) }

// trigger decrements signal's counter (or forces it to zero when zero is
// true, matching the original's trigger<ZERO>) and, if it reached zero,
// detaches every parked waitor from signal and returns them. Must be
// called with sys.sync held; the caller schedules the returned waitors
// with scheduleWaitors after releasing sys.sync, since pushing to a
// WorkQueue can block on its own mutex.
func trigger(sys *System, signal *Signal, zero bool) []*Waitor {
	if zero {
		signal.counter.Store(0)
	} else {
		counter := signal.counter.Add(-1) - 1
		invariant.Assert(counter >= 0, "job: Signal counter went negative")
		if counter > 0 {
			return nil
		}
	}

	waitor := signal.waitor
	signal.waitor = nil

	var list []*Waitor
	for w := waitor; w != nil; w = w.next {
		list = append(list, w)
	}
	return list
}

// scheduleWaitors pushes every waitor's fiber onto its preferred queue.
// Called without sys.sync held.
func (sys *System) scheduleWaitors(list []*Waitor) {
	for _, w := range list {
		if w.fiber == nil {
			close(w.ch)
			continue
		}
		workerIdx := w.fiber.currentJob.WorkerIndex
		if workerIdx == AnyWorker {
			sys.globalQueue.Push(fiberWork(w.fiber))
		} else {
			worker := sys.workers[int(workerIdx)%len(sys.workers)]
			worker.queue.Push(fiberWork(w.fiber))
		}
	}
}

// setRedEx attempts to transition signal's counter from 0 to 1 (the
// "mutex held" state); returns whether it succeeded.
func setRedEx(signal *Signal, nextGeneration func() int32) bool {
	invariant.Assert(signal.counter.Load() <= 1, "job: Signal counter out of mutex range")
	if signal.counter.CompareAndSwap(0, 1) {
		signal.generation = nextGeneration()
		return true
	}
	return false
}

// SetRed forces signal's counter to the "held" state without waking
// anyone; used by callers that want a Signal starting in the blocked
// state before any job runs.
func SetRed(signal *Signal) {
	sys := currentSystem()
	setRedEx(signal, sys.nextGeneration)
}

// SetGreen releases signal (forces its counter to zero) and wakes every
// fiber parked on it.
func SetGreen(signal *Signal) {
	invariant.Assert(signal.counter.Load() <= 1, "job: Signal counter out of mutex range")
	sys := currentSystem()
	sys.sync.Enter()
	list := trigger(sys, signal, true)
	sys.sync.Exit()
	sys.scheduleWaitors(list)
}
