// Package fiber emulates stackful-coroutine fibers over locked goroutines.
// Go has no supported API for manual stack switching, so a Handle pins
// its body to a dedicated goroutine and uses a strict two-channel
// hand-off protocol to guarantee that control is never logically
// concurrent between two fiber bodies, even though both exist as live
// goroutines at once. See DESIGN.md for the Open-Question rationale.
package fiber

import (
	"runtime"

	"github.com/kestrelcore/corert/invariant"
)

// Handle is one fiber: a captured entry function running on a dedicated
// goroutine, plus the resume/done channels that hand control back and
// forth with whichever Handle switched into it.
type Handle struct {
	entry     func()
	param     any
	stackSize int

	resume  chan struct{}
	done    chan struct{}
	started bool
	dead    bool
}

// threadState tracks, per OS-thread-hosting goroutine, which Handle is
// currently running on it. InitThread must be called once on the
// goroutine that will act as a fiber carrier (a job worker's main loop)
// before any SwitchTo.
type threadState struct {
	current *Handle
}

// InitThread marks the calling goroutine as a fiber carrier, returning a
// Handle representing "the native execution context" — the thread's own
// stack before it ever switches to a pooled fiber, exactly like the
// original's Fiber::initThread. Destroy should not be called on the
// returned Handle; SwitchTo back into it simply resumes the carrier.
func InitThread() *Handle {
	h := &Handle{
		resume:  make(chan struct{}),
		done:    make(chan struct{}),
		started: true,
	}
	return h
}

// Create allocates a fiber whose body is entry, which may read param via
// closure. stackSize is accepted for call-site fidelity with the
// original's handle-allocation signature; Go goroutine stacks grow on
// demand; the value is not enforced anywhere.
func Create(stackSize int, entry func(), param any) *Handle {
	return &Handle{
		entry:     entry,
		param:     param,
		stackSize: stackSize,
		resume:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// SwitchTo transfers control from the calling fiber (outPrev, typically
// the currently-running Handle) to next, blocking the caller until next
// switches back to outPrev or next's entry returns. The first SwitchTo into a freshly Created
// Handle spawns its carrier goroutine; subsequent switches resume it
// where it last yielded.
func SwitchTo(outPrev *Handle, next *Handle) {
	invariant.Assert(next != nil, "fiber: SwitchTo target is nil")
	invariant.Assert(!next.dead, "fiber: SwitchTo target already destroyed")

	if !next.started {
		next.started = true
		go runBody(next)
	}

	next.resume <- struct{}{}
	select {
	case <-outPrev.resume:
	case <-next.done:
	}
}

// runBody is the goroutine backing a non-carrier Handle. It parks
// immediately waiting for its first resume signal (SwitchTo spawns it and
// then blocks on the unbuffered send until this receive takes it), runs
// entry to completion exactly once, then marks itself
// dead. entry is expected to call Yield internally to hand control back
// before returning; a fiber whose entry returns without yielding is
// reported finished via done being closed.
func runBody(h *Handle) {
	<-h.resume
	if h.entry != nil {
		h.entry()
	}
	h.dead = true
	close(h.done)
}

// Yield hands control from the calling fiber (self) back to target; it is
// exactly SwitchTo(self, target) under a name that reads better at fiber
// exit points.
func Yield(self *Handle, target *Handle) {
	SwitchTo(self, target)
}

// Destroy releases a fiber that has finished running (runBody has
// returned and closed done). Calling Destroy on a fiber still in flight
// is an invariant violation — the scheduler must only recycle fibers it
// has observed complete.
func Destroy(h *Handle) {
	invariant.Assert(h.dead || !h.started, "fiber: Destroy called on a live fiber")
}

// Param returns the value passed to Create, letting entry closures avoid
// capturing it directly when a Handle is threaded through several
// functions before its body runs.
func (h *Handle) Param() any { return h.param }

// IsDead reports whether entry has returned and the fiber's goroutine has
// exited.
func (h *Handle) IsDead() bool { return h.dead }

// Relax yields the OS thread, used by spin-wait loops elsewhere in this
// module while a fiber carrier is blocked waiting for work.
func Relax() {
	runtime.Gosched()
}
