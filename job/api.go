package job

import (
	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/fiber"
	"github.com/kestrelcore/corert/invariant"
)

// parkCurrentFiberLocked records fd as a waitor on signal and claims a
// free pool fiber to hand the calling worker over to. Must be called
// with sys.sync held; the caller releases sys.sync and performs the
// actual fiber.SwitchTo itself, so the lock is never held across a
// blocking hand-off (only across the bookkeeping that precedes it).
func parkCurrentFiberLocked(sys *System, signal *Signal) (fd *FiberDecl, next *FiberDecl) {
	var ok bool
	fd, ok = currentFiber()
	invariant.Assert(ok, "job: called from a goroutine with no current fiber (not running inside the job system)")

	w := &Waitor{fiber: fd}
	w.next = signal.waitor
	signal.waitor = w

	invariant.Assert(len(sys.freeFibers) > 0, "job: fiber pool exhausted")
	next = sys.freeFibers[len(sys.freeFibers)-1]
	sys.freeFibers = sys.freeFibers[:len(sys.freeFibers)-1]
	if next.handle == nil {
		next.handle = fiber.Create(fiberStackSize, func() { sys.manage(next) }, next)
		sys.metrics.recordFiberCreated()
	} else {
		sys.metrics.recordFiberReused()
	}
	next.worker = fd.worker
	fd.worker.current = next
	return fd, next
}

// claimFreeFiberLocked grabs a pool fiber to resume the given worker
// with, without parking anyone on a signal. Used by Yield and
// MoveToWorker, which reschedule the calling fiber directly onto a
// queue instead of waiting on a completion latch. Must be called with
// sys.sync held.
func claimFreeFiberLocked(sys *System, worker *Worker) *FiberDecl {
	invariant.Assert(len(sys.freeFibers) > 0, "job: fiber pool exhausted")
	next := sys.freeFibers[len(sys.freeFibers)-1]
	sys.freeFibers = sys.freeFibers[:len(sys.freeFibers)-1]
	if next.handle == nil {
		next.handle = fiber.Create(fiberStackSize, func() { sys.manage(next) }, next)
		sys.metrics.recordFiberCreated()
	} else {
		sys.metrics.recordFiberReused()
	}
	next.worker = worker
	worker.current = next
	return next
}

// Enter locks mu, parking the calling fiber (and freeing its worker to
// run other work) if it is already held. Direct port of
// job_system.cpp's Mutex::enter.
func Enter(mu *Mutex) {
	sys := currentSystem()
	for i := 0; i < 400; i++ {
		if setRedEx(&mu.signal, sys.nextGeneration) {
			return
		}
		atomicx.Relax()
	}
	for {
		sys.sync.Enter()
		if setRedEx(&mu.signal, sys.nextGeneration) {
			sys.sync.Exit()
			return
		}
		fd, next := parkCurrentFiberLocked(sys, &mu.signal)
		sys.sync.Exit()
		fiber.SwitchTo(fd.handle, next.handle)
	}
}

// Exit unlocks mu and reschedules every fiber parked in Enter.
func Exit(mu *Mutex) {
	sys := currentSystem()
	sys.sync.Enter()
	list := trigger(sys, &mu.signal, true)
	sys.sync.Exit()
	sys.scheduleWaitors(list)
}

// Wait blocks until signal's counter reaches zero, returning immediately
// if it already has. Direct port of job_system.cpp's wait(): called from
// inside a job it parks the calling fiber and frees its worker to run
// other work; called from any other goroutine (typically the
// application's main goroutine, after submitting a batch of jobs) it
// blocks the calling goroutine directly, since there is no fiber to park
// and no worker slot to give back.
func Wait(signal *Signal) {
	sys := currentSystem()
	if fd, ok := currentFiber(); ok {
		sys.sync.Enter()
		if signal.counter.Load() <= 0 {
			sys.sync.Exit()
			return
		}
		sys.metrics.recordSignalWait()
		_, next := parkCurrentFiberLocked(sys, signal)
		sys.sync.Exit()
		fiber.SwitchTo(fd.handle, next.handle)
		return
	}

	sys.sync.Enter()
	if signal.counter.Load() <= 0 {
		sys.sync.Exit()
		return
	}
	sys.metrics.recordSignalWait()
	ch := make(chan struct{})
	w := &Waitor{ch: ch}
	w.next = signal.waitor
	signal.waitor = w
	sys.sync.Exit()
	<-ch
}

// Yield gives the calling fiber's worker a chance to run other queued
// work before resuming this one, by requeueing the fiber on its current
// worker's own queue and switching to a fresh pool fiber.
func Yield() {
	sys := currentSystem()
	fd, ok := currentFiber()
	invariant.Assert(ok, "job: Yield called outside the job system")
	worker := fd.worker

	sys.sync.Enter()
	next := claimFreeFiberLocked(sys, worker)
	sys.sync.Exit()

	worker.queue.Push(fiberWork(fd))
	fiber.SwitchTo(fd.handle, next.handle)
}

// MoveToWorker moves the calling fiber onto the queue of the worker at
// workerIndex, so the remainder of the current job's continuation runs
// pinned there: the job's WorkerIndex is set to that worker, so a later
// Wait also resumes it there. Returns without switching if already
// running on that worker.
func MoveToWorker(workerIndex uint8) {
	sys := currentSystem()
	fd, ok := currentFiber()
	invariant.Assert(ok, "job: MoveToWorker called outside the job system")

	curWorker := fd.worker
	target := sys.workers[int(workerIndex)%len(sys.workers)]
	fd.currentJob.WorkerIndex = target.index
	if target == curWorker {
		return
	}

	sys.sync.Enter()
	next := claimFreeFiberLocked(sys, curWorker)
	sys.sync.Exit()

	target.queue.Push(fiberWork(fd))
	fiber.SwitchTo(fd.handle, next.handle)
}

// Run submits a single job. If onFinish is non-nil its counter is
// incremented by one before the job is queued, under sys.sync so the
// increment can never race a concurrent trigger() decrement on the same
// Signal; if the pre-increment value was zero, onFinish is being
// re-armed, so its generation is bumped the same way setRedEx does for a
// freshly acquired Mutex. Direct port of job_system.cpp's run().
func Run(task func(any), data any, onFinish *Signal, workerIndex uint8) {
	sys := currentSystem()
	if onFinish != nil {
		sys.sync.Enter()
		if onFinish.counter.Add(1) == 0 {
			onFinish.generation = sys.nextGeneration()
		}
		sys.sync.Exit()
	}
	j := Job{Task: task, Data: data, OnFinish: onFinish, WorkerIndex: workerIndex}
	if workerIndex == AnyWorker {
		sys.globalQueue.Push(jobWork(j))
		return
	}
	sys.workers[int(workerIndex)%len(sys.workers)].queue.Push(jobWork(j))
}

// RunLambda submits f as a zero-argument job and, if onFinish is
// non-nil, counts it against onFinish the same way Run does. A thin,
// type-safe wrapper over Run for callers with no Job.Data to pass.
func RunLambda(f func(), onFinish *Signal, workerIndex uint8) {
	Run(func(any) { f() }, nil, onFinish, workerIndex)
}

// ForEach submits one job per element of items, invoking fn(item) on
// whichever worker picks it up, and blocks until every item has been
// processed. Direct port of job_system.h's forEach, minus the original's
// batching (the ring-buffer queues here are already small and lock-free,
// so per-item dispatch does not need batch coalescing to stay cheap).
func ForEach[T any](items []T, fn func(T), workerIndex uint8) {
	if len(items) == 0 {
		return
	}
	var done Signal
	for i := range items {
		item := items[i]
		RunLambda(func() { fn(item) }, &done, workerIndex)
	}
	Wait(&done)
}

// RunOnWorkers submits fn to every worker currently in the pool and
// blocks until all of them have run it once. Direct port of
// job_system.h's runOnWorkers, used e.g. to warm or reset per-worker
// state.
func RunOnWorkers(fn func()) {
	sys := currentSystem()
	var done Signal
	for i := range sys.workers {
		RunLambda(fn, &done, uint8(i))
	}
	Wait(&done)
}
