package job

import "sync/atomic"

// WorkerState is a worker's coarse lifecycle state, the Go-domain
// adaptation of the teacher repo's eventloop.FastState/LoopState pair:
// the same cache-line-padded lock-free CAS state machine, repurposed
// from loop awake/running/sleeping/terminating to a job worker's.
type WorkerState uint32

const (
	// WorkerAwake is set before a worker's goroutine has entered its
	// manage loop for the first time.
	WorkerAwake WorkerState = iota
	// WorkerRunning is the normal steady state: popping and executing
	// work.
	WorkerRunning
	// WorkerParked is set while a backup worker is blocked on its
	// enable CondVar.
	WorkerParked
	// WorkerTerminating is set by Shutdown; the worker exits its loop
	// once it next checks its state.
	WorkerTerminating
	// WorkerTerminated is the terminal state, set once the worker's
	// manage loop has returned control to its carrier fiber.
	WorkerTerminated
)

func (s WorkerState) String() string {
	switch s {
	case WorkerAwake:
		return "Awake"
	case WorkerRunning:
		return "Running"
	case WorkerParked:
		return "Parked"
	case WorkerTerminating:
		return "Terminating"
	case WorkerTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding to keep
// frequent worker-state reads from a hot goroutine off the same line as
// whatever field precedes it in Worker.
type fastState struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newFastState(initial WorkerState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() WorkerState { return WorkerState(s.v.Load()) }

func (s *fastState) Store(state WorkerState) { s.v.Store(uint32(state)) }

// TryTransition CASes from one state to another, returning whether it
// succeeded.
func (s *fastState) TryTransition(from, to WorkerState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

func (s *fastState) IsTerminal() bool {
	return s.Load() == WorkerTerminated
}
