package job

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/corelog"
	"github.com/kestrelcore/corert/fiber"
	"github.com/kestrelcore/corert/goroutinelocal"
	"github.com/kestrelcore/corert/invariant"
	"github.com/kestrelcore/corert/ossync"
)

const fiberPoolSize = 512
const fiberStackSize = 64 * 1024

// System is the scheduler's global state, a direct port of
// job_system.cpp's System struct: the worker pool, the fiber pool and
// its free list, and the single global WorkQueue.
type System struct {
	id   uuid.UUID
	sync ossync.Mutex

	workers       []*Worker
	backupWorkers []*Worker

	fiberPool  [fiberPoolSize]FiberDecl
	freeFibers []*FiberDecl

	globalQueue *WorkQueue

	generation atomicx.Int32
	metrics    Metrics
}

var (
	sysMu sync.RWMutex
	sys   *System
)

func currentSystem() *System {
	sysMu.RLock()
	defer sysMu.RUnlock()
	invariant.Assert(sys != nil, "job: scheduler not initialized; call job.Init first")
	return sys
}

func (s *System) nextGeneration() int32 { return s.generation.Add(1) + 1 }

// Init starts workersCount workers (at least 1) and the fixed 512-fiber
// pool. Only one System may be active at a time, matching the original's
// single global g_system.
func Init(opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sysMu.Lock()
	defer sysMu.Unlock()
	invariant.Assert(sys == nil, "job: Init called while a scheduler is already running")

	s := &System{
		id:          uuid.New(),
		globalQueue: newWorkQueue(o.globalQueueCapacity),
	}
	for i := range s.fiberPool {
		s.fiberPool[i].idx = i
		s.freeFibers = append(s.freeFibers, &s.fiberPool[i])
	}

	count := o.workers
	if count < 1 {
		count = 1
	}

	for i := 0; i < count; i++ {
		w := newWorker(uint8(i))
		w.queue = newWorkQueue(o.perWorkerQueueCapacity)
		w.isEnabled = true
		cpu := i
		th, err := ossync.Create(fmt.Sprintf("worker-%d", i), false, func() {
			if o.affinity {
				_ = ossync.SetAffinity(uint64(1) << uint(cpu))
			}
			runWorkerLoop(s, w)
		})
		if err != nil {
			return fmt.Errorf("job: starting worker %d: %w", i, err)
		}
		w.thread = th
		s.workers = append(s.workers, w)
	}

	if len(s.workers) == 0 {
		return fmt.Errorf("job: no workers started")
	}

	sys = s
	corelog.Global().Log(corelog.Entry{
		Level:    corelog.LevelInfo,
		Category: "scheduler",
		Message:  "scheduler started",
		Fields:   map[string]any{"system_id": s.id.String(), "workers": len(s.workers)},
	})
	return nil
}

// runWorkerLoop is a worker's OS-thread entry point: it becomes a fiber
// carrier, pulls the first pool fiber, and switches into the manage loop
// forever.
func runWorkerLoop(s *System, w *Worker) {
	w.carrier = fiber.InitThread()

	s.sync.Enter()
	fd := s.freeFibers[len(s.freeFibers)-1]
	s.freeFibers = s.freeFibers[:len(s.freeFibers)-1]
	if fd.handle == nil {
		fd.handle = fiber.Create(fiberStackSize, func() { s.manage(fd) }, fd)
		s.metrics.recordFiberCreated()
	} else {
		s.metrics.recordFiberReused()
	}
	fd.worker = w
	w.current = fd
	s.sync.Exit()

	fiber.SwitchTo(w.carrier, fd.handle)
}

// markCurrentFiber records, for the calling goroutine, which FiberDecl it
// is the persistent body of — set once per fiber-goroutine lifetime, not
// per resume, since goroutinelocal is keyed by goroutine id and a given
// FiberDecl's goroutine never changes across resumes.
func markCurrentFiber(fd *FiberDecl) {
	goroutinelocal.Set(fd)
}

func currentFiber() (*FiberDecl, bool) {
	v, ok := goroutinelocal.Get()
	if !ok {
		return nil, false
	}
	fd, ok := v.(*FiberDecl)
	return fd, ok
}

// WorkersCount reports the number of active workers.
func WorkersCount() int {
	s := currentSystem()
	return len(s.workers)
}

// CurrentWorkerIndex returns the index of the worker the calling job is
// currently running on. Panics if called from outside a job (e.g. from
// the goroutine that called Init).
func CurrentWorkerIndex() uint8 {
	fd, ok := currentFiber()
	invariant.Assert(ok, "job: CurrentWorkerIndex called outside the job system")
	return fd.worker.index
}

// SystemID returns the running scheduler's instance identifier, useful
// for correlating log lines when more than one System runs in the same
// process (as the test suite and cmd/jobsim's scenario runner do).
func SystemID() uuid.UUID {
	return currentSystem().id
}

// EnableBackupWorker toggles a single backup worker used to keep making
// progress while every regular worker is blocked (e.g. nested Wait calls
// during shutdown-adjacent work), mirroring
// job_system.cpp's enableBackupWorker.
func EnableBackupWorker(enable bool) error {
	s := currentSystem()
	s.sync.Enter()
	for _, w := range s.backupWorkers {
		if w.isEnabled != enable {
			w.isEnabled = enable
			w.enableCV.WakeAll()
			s.sync.Exit()
			return nil
		}
	}
	s.sync.Exit()

	invariant.Assert(enable, "job: EnableBackupWorker(false) called with no enabled backup worker")

	w := newWorker(AnyWorker)
	w.queue = newWorkQueue(4)
	w.isBackup = true
	w.isEnabled = true
	s.sync.Enter()
	w.enableCV = ossync.NewCondVar(&s.sync)
	s.sync.Exit()

	th, err := ossync.Create("backup-worker", false, func() {
		runWorkerLoop(s, w)
	})
	if err != nil {
		return fmt.Errorf("job: starting backup worker: %w", err)
	}
	w.thread = th

	s.sync.Enter()
	s.backupWorkers = append(s.backupWorkers, w)
	s.sync.Exit()
	return nil
}

// Shutdown stops every worker and tears down the scheduler. Workers
// parked waiting for work are woken via their queue semaphores; backup
// workers parked on their enable condvar are woken via WakeAll.
func Shutdown() {
	sysMu.Lock()
	s := sys
	sysMu.Unlock()
	invariant.Assert(s != nil, "job: Shutdown called without a running scheduler")

	s.sync.Enter()
	for _, w := range s.workers {
		w.state.Store(WorkerTerminating)
	}
	for _, w := range s.backupWorkers {
		w.state.Store(WorkerTerminating)
	}
	s.sync.Exit()

	for _, w := range s.workers {
		w.queue.Semaphore().Signal(1)
	}
	for _, w := range s.backupWorkers {
		w.enableCV.WakeAll()
		w.queue.Semaphore().Signal(1)
	}

	for _, w := range s.workers {
		w.thread.Destroy()
	}
	for _, w := range s.backupWorkers {
		w.thread.Destroy()
	}

	corelog.Global().Log(corelog.Entry{
		Level:    corelog.LevelInfo,
		Category: "scheduler",
		Message:  "scheduler stopped",
		Fields:   map[string]any{"system_id": s.id.String()},
	})

	sysMu.Lock()
	sys = nil
	sysMu.Unlock()
}
