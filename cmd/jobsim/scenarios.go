package main

import (
	"fmt"
	"sync/atomic"

	"github.com/kestrelcore/corert/alloc"
	"github.com/kestrelcore/corert/arena"
	"github.com/kestrelcore/corert/bucketalloc"
	"github.com/kestrelcore/corert/job"
	"github.com/kestrelcore/corert/osmem"
	"github.com/kestrelcore/corert/ring"
)

// scenario runs one named end-to-end check against a live scheduler and
// reports the failing invariant, if any.
type scenario struct {
	name string
	run  func(cfg simConfig) error
}

var scenarios = map[string]scenario{
	"fanout":        {"fanout", scenarioFanout},
	"pinned":        {"pinned", scenarioPinned},
	"mutex":         {"mutex", scenarioMutex},
	"bucket":        {"bucket", scenarioBucket},
	"arena":         {"arena", scenarioArena},
	"ring-overflow": {"ring-overflow", scenarioRingOverflow},
}

// scenarioFanout submits cfg.Jobs independent jobs sharing one Signal and
// checks every one of them ran exactly once (S1).
func scenarioFanout(cfg simConfig) error {
	var count atomic.Int64
	job.ForEach(make([]struct{}, cfg.Jobs), func(struct{}) {
		count.Add(1)
	}, job.AnyWorker)

	if got := count.Load(); got != int64(cfg.Jobs) {
		return fmt.Errorf("fanout: expected %d completions, got %d", cfg.Jobs, got)
	}
	return nil
}

// scenarioPinned submits one job per worker pinned via Job.WorkerIndex
// and checks each ran on the worker it was pinned to (S2).
func scenarioPinned(cfg simConfig) error {
	n := job.WorkersCount()
	seen := make([]atomic.Bool, n)
	var done job.Signal
	for i := 0; i < n; i++ {
		idx := uint8(i)
		job.Run(func(any) {
			if job.CurrentWorkerIndex() != idx {
				return
			}
			seen[idx].Store(true)
		}, nil, &done, idx)
	}
	job.Wait(&done)

	for i, s := range seen {
		if !s.Load() {
			return fmt.Errorf("pinned: worker %d never ran its pinned job", i)
		}
	}
	return nil
}

// scenarioMutex hammers a job.Mutex-guarded counter from cfg.Jobs
// concurrent jobs and checks the final count is exact, i.e. no update
// was lost to a race (S3).
func scenarioMutex(cfg simConfig) error {
	var mu job.Mutex
	counter := 0
	var done job.Signal
	for i := 0; i < cfg.Jobs; i++ {
		job.Run(func(any) {
			g := job.NewMutexGuard(&mu)
			defer g.Release()
			counter++
		}, nil, &done, job.AnyWorker)
	}
	job.Wait(&done)

	if counter != cfg.Jobs {
		return fmt.Errorf("mutex: expected counter %d, got %d (lost update under contention)", cfg.Jobs, counter)
	}
	return nil
}

// scenarioBucket drives bucketalloc.Allocator from concurrent jobs,
// allocating and freeing small objects, and fails if any allocation
// returns an error (S4). Pointer uniqueness is not checked.
func scenarioBucket(cfg simConfig) error {
	bucket, err := bucketalloc.New(osmem.System{})
	if err != nil {
		return fmt.Errorf("bucket: %w", err)
	}
	defer bucket.Close()

	// Driven through the shared vtable, not the concrete type, matching
	// how job.System and the rest of the module hold allocators.
	var a alloc.Interface = bucket

	var mismatches atomic.Int64
	var done job.Signal
	for i := 0; i < cfg.Jobs; i++ {
		job.Run(func(any) {
			ptr, err := a.Allocate(32, 8)
			if err != nil {
				mismatches.Add(1)
				return
			}
			defer a.Deallocate(ptr)
		}, nil, &done, job.AnyWorker)
	}
	job.Wait(&done)

	if n := mismatches.Load(); n != 0 {
		return fmt.Errorf("bucket: %d allocations failed under concurrency", n)
	}
	return nil
}

// scenarioArena bump-allocates from a shared arena.Arena across
// concurrent jobs and fails if any allocation returns an error (S5).
// Neither the committed size nor range overlap is checked.
func scenarioArena(cfg simConfig) error {
	const perJob = 64
	a, err := arena.New(osmem.System{}, uintptr(cfg.Jobs*perJob))
	if err != nil {
		return fmt.Errorf("arena: %w", err)
	}
	defer a.Close()

	var failures atomic.Int64
	var done job.Signal
	for i := 0; i < cfg.Jobs; i++ {
		job.Run(func(any) {
			if _, err := a.Allocate(perJob, 8); err != nil {
				failures.Add(1)
			}
		}, nil, &done, job.AnyWorker)
	}
	job.Wait(&done)

	if n := failures.Load(); n != 0 {
		return fmt.Errorf("arena: %d allocations failed", n)
	}
	return nil
}

// scenarioRingOverflow pushes well past a small ring's capacity from
// several producers while popping from several consumers, checking every
// item is delivered exactly once whether it travelled through the
// lock-free path or the overflow fallback (S6).
func scenarioRingOverflow(cfg simConfig) error {
	const capacity = 4
	const producers = 4
	perProducer := cfg.RingCapacity * 2
	if perProducer < capacity*4 {
		perProducer = capacity * 4
	}
	total := producers * perProducer

	r := ring.New[int](capacity)
	counts := make([]int32, total)

	produceDone := make(chan struct{})
	for p := 0; p < producers; p++ {
		p := p
		go func() {
			for i := 0; i < perProducer; i++ {
				r.Push(p*perProducer + i)
			}
			produceDone <- struct{}{}
		}()
	}

	var received atomic.Int64
	const consumers = 4
	consumeDone := make(chan struct{})
	for c := 0; c < consumers; c++ {
		go func() {
			for received.Load() < int64(total) {
				if v, ok := r.Pop(); ok {
					atomic.AddInt32(&counts[v], 1)
					received.Add(1)
				}
			}
			consumeDone <- struct{}{}
		}()
	}

	for p := 0; p < producers; p++ {
		<-produceDone
	}
	for c := 0; c < consumers; c++ {
		<-consumeDone
	}

	for i, c := range counts {
		if c != 1 {
			return fmt.Errorf("ring-overflow: item %d delivered %d times, want exactly 1", i, c)
		}
	}
	return nil
}
