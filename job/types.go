// Package job implements the fiber-based cooperative job scheduler,
// grounded on original_source/src/core/job_system.{h,cpp}: a fixed pool
// of fiber-emulating goroutines (package fiber), a small number of
// worker threads (package ossync) pinned to CPUs, per-worker and global
// work queues (package ring), and Signal/Mutex primitives used both by
// job code and by the scheduler's own fiber-parking logic.
package job

import (
	"github.com/kestrelcore/corert/fiber"
)

// AnyWorker is the sentinel worker_index meaning "any worker may run
// this job," matching the original's ANY_WORKER = 0xff.
const AnyWorker uint8 = 0xff

// Job is one unit of scheduled work: a task function, its argument, the
// Signal to decrement on completion (if any), and the worker the caller
// requested (AnyWorker for no preference).
type Job struct {
	Task        func(any)
	Data        any
	OnFinish    *Signal
	WorkerIndex uint8
}

// workType discriminates the two kinds of entries a WorkQueue carries:
// a freshly submitted Job, or a FiberDecl being resumed after a wait.
type workType int

const (
	workNone workType = iota
	workJob
	workFiber
)

// Work is the tagged union job_system.cpp's Work struct ports to Go as a
// plain struct with a discriminant, since Go has no native unions.
type Work struct {
	kind  workType
	job   Job
	fiber *FiberDecl
}

func jobWork(j Job) Work           { return Work{kind: workJob, job: j} }
func fiberWork(f *FiberDecl) Work  { return Work{kind: workFiber, fiber: f} }

// FiberDecl is one slot in the fixed-size fiber pool: a persistent
// goroutine (via package fiber) that runs the scheduler's manage loop
// forever, switching in and out of whatever job currently owns it.
// worker records which Worker most recently switched into this fiber,
// written under System.sync immediately before the handoff so the
// fiber's own goroutine observes it safely once resumed (see
// currentFiber in system.go).
type FiberDecl struct {
	idx        int
	handle     *fiber.Handle
	worker     *Worker
	currentJob Job
}
