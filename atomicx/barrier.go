package atomicx

import "runtime"

// Fence, LoadFence and StoreFence exist to preserve call-site parity with
// spec.md §4.A's explicit memory_barrier/read_barrier/write_barrier
// operations. Go's memory model already guarantees sequential consistency
// for sync/atomic operations on a single variable (the happens-before
// relationships the ring buffer and signal code rely on come entirely from
// the atomic loads/stores on indices and counters), so these are
// documented no-ops rather than compiler-reordering barriers: there is no
// non-atomic shared state in this module that depends on them for
// ordering. They are kept as named call sites so a reviewer reading code
// ported from the original's explicit-fence style finds the same shape,
// and so a future non-atomic fast path (if one is ever added) has an
// obvious place to plug a real barrier in.
func Fence()      {}
func LoadFence()  {}
func StoreFence() {}

// Relax hints to the scheduler that the calling goroutine is spinning and
// would benefit from yielding if another goroutine is runnable. It is the
// closest portable equivalent of an x86 PAUSE instruction available
// without cgo or assembly: Gosched yields the P but, unlike a true CPU
// pause, does not merely slow the core down, so busy-wait loops that call
// Relax should still bound their spin count (see job.Mutex.Enter's 400
// iteration cap, ported unchanged from spec.md §4.J).
func Relax() {
	runtime.Gosched()
}
