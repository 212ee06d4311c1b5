package job

import (
	"github.com/kestrelcore/corert/fiber"
	"github.com/kestrelcore/corert/ossync"
)

// Worker is one OS-thread-backed scheduler loop: a carrier fiber.Handle
// representing the worker's native stack, its own per-worker WorkQueue,
// and the backup-worker enable/disable state job_system.cpp's
// WorkerTask models with m_is_enabled/m_is_backup.
type Worker struct {
	index   uint8
	thread  *ossync.Thread
	queue   *WorkQueue
	carrier *fiber.Handle
	current *FiberDecl

	state     *fastState
	isBackup  bool
	isEnabled bool
	enableCV  *ossync.CondVar
}

func newWorker(index uint8) *Worker {
	return &Worker{index: index, state: newFastState(WorkerAwake)}
}

func (w *Worker) finished() bool { return w.state.Load() == WorkerTerminating }

// manage is the body every pool FiberDecl runs forever on its own
// goroutine: pop work (job or resumed fiber), run it, then loop. Mirrors
// job_system.cpp's manage(); this_fiber identifies which FiberDecl's
// goroutine is executing, exactly like the original's `data` parameter.
func (sys *System) manage(thisFiber *FiberDecl) {
	markCurrentFiber(thisFiber)

	for {
		worker := thisFiber.worker
		worker.state.TryTransition(WorkerAwake, WorkerRunning)

		if worker.isBackup {
			sys.sync.Enter()
			for !worker.isEnabled && !worker.finished() {
				worker.state.Store(WorkerParked)
				worker.enableCV.SleepOn()
			}
			worker.state.TryTransition(WorkerParked, WorkerRunning)
			sys.sync.Exit()
		}

		var work Work
		var ok bool
		for !worker.finished() {
			work, ok = sys.tryPopWork(worker)
			if ok {
				break
			}
			if worker.isBackup {
				break
			}
		}
		if worker.finished() {
			break
		}
		if !ok {
			continue
		}

		switch work.kind {
		case workFiber:
			sys.sync.Enter()
			sys.freeFibers = append(sys.freeFibers, thisFiber)
			work.fiber.worker = worker
			worker.current = work.fiber
			sys.sync.Exit()

			fiber.SwitchTo(thisFiber.handle, work.fiber.handle)
			worker = thisFiber.worker
			worker.current = thisFiber

		case workJob:
			if work.job.Task == nil {
				continue
			}
			thisFiber.currentJob = work.job
			work.job.Task(work.job.Data)
			thisFiber.currentJob.Task = nil
			sys.metrics.recordJobExecuted()
			if work.job.OnFinish != nil {
				sys.sync.Enter()
				list := trigger(sys, work.job.OnFinish, false)
				sys.sync.Exit()
				sys.scheduleWaitors(list)
			}
		}
	}

	thisFiber.worker.state.Store(WorkerTerminated)
	fiber.SwitchTo(thisFiber.handle, thisFiber.worker.carrier)
}

// tryPopWork checks the worker's own queue, then the global queue, and
// finally blocks on whichever queue's semaphore fires first — exactly
// job_system.cpp's tryPopWork.
func (sys *System) tryPopWork(w *Worker) (Work, bool) {
	if work, ok := w.queue.Pop(); ok {
		return work, true
	}
	if work, ok := sys.globalQueue.Pop(); ok {
		return work, true
	}

	switch ossync.WaitMultiple(w.queue.Semaphore(), sys.globalQueue.Semaphore()) {
	case 0:
		return w.queue.Pop()
	default:
		return sys.globalQueue.Pop()
	}
}
