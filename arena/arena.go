// Package arena implements the bump (linear) allocator spec.md §4.F
// calls for, grounded on original_source/src/core/arena_allocator.cpp:
// a single reserved region, a lock-free atomic end offset advanced by
// compare-and-swap, and lazy 4 KiB commit as the end offset crosses
// uncommitted pages.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/kestrelcore/corert/alloc"
	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/invariant"
	"github.com/kestrelcore/corert/osmem"
	"github.com/kestrelcore/corert/ossync"
)

// Arena is a bump allocator over a single reserved region. The end offset
// advances without a lock, but every Allocate then takes the
// commit-guarding mutex briefly to check the committed size; pages are
// committed only when an allocation crosses into fresh ones.
type Arena struct {
	mem    osmem.Allocator
	region []byte

	end            atomicx.Int32
	commitMu       ossync.Mutex
	committedBytes uint32
}

var _ alloc.Interface = (*Arena)(nil)

// New reserves (but does not commit) size bytes from mem. size must fit
// in an int32 byte offset.
func New(mem osmem.Allocator, size uintptr) (*Arena, error) {
	region, err := mem.Reserve(size)
	if err != nil {
		return nil, fmt.Errorf("arena: reserve: %w", err)
	}
	return &Arena{mem: mem, region: region}, nil
}

func roundUp(v, align int32) int32 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// Allocate bumps the arena's end offset by size (rounded up for align),
// committing any pages the new allocation newly spans. This is the exact
// three-step CAS-then-maybe-commit algorithm spec.md §4.F describes: read
// end, compute the aligned candidate, CAS it in; on success, commit any
// pages the allocation crossed that weren't already committed.
func (a *Arena) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	sz, al := int32(size), int32(align)
	var start, next int32
	for {
		old := a.end.Load()
		start = roundUp(old, al)
		next = start + sz
		invariant.Assert(int(next) <= len(a.region), "arena: out of reserved space (need %d, have %d)", next, len(a.region))
		if a.end.CompareAndSwap(old, next) {
			break
		}
	}

	if err := a.ensureCommitted(uint32(next)); err != nil {
		return nil, err
	}
	ptr := unsafe.Pointer(&a.region[start])
	trackAllocation(ptr, size)
	return ptr, nil
}

// ensureCommitted commits pages up to upTo bytes into the region if they
// aren't already, guarded by commitMu. Allocate calls it on every
// allocation, so every Allocate takes commitMu; the OS commit itself runs
// only when an allocation crosses into fresh pages.
func (a *Arena) ensureCommitted(upTo uint32) error {
	a.commitMu.Enter()
	defer a.commitMu.Exit()
	if upTo <= a.committedBytes {
		return nil
	}
	newCommitted := ((upTo + osmem.PageSize - 1) / osmem.PageSize) * osmem.PageSize
	if err := a.mem.Commit(a.region, uintptr(a.committedBytes), uintptr(newCommitted-a.committedBytes)); err != nil {
		return err
	}
	a.committedBytes = newCommitted
	return nil
}

// Reset rewinds the arena's logical end to zero, making every
// already-committed page available for reuse without touching the OS.
// Precondition: every allocation made since the arena was created (or
// last Reset) is logically dead; Reset does not, and cannot, verify
// this.
func (a *Arena) Reset() {
	a.end.Store(0)
}

// CommittedBytes reports how much of the reserved region currently has
// physical memory backing it.
func (a *Arena) CommittedBytes() uint32 {
	a.commitMu.Enter()
	defer a.commitMu.Exit()
	return a.committedBytes
}

// Deallocate is a no-op: a bump allocator never frees individual
// objects, only the whole arena via Reset.
func (a *Arena) Deallocate(ptr unsafe.Pointer) {}

// Reallocate only supports the "grow a null pointer" shortcut — i.e.
// behaves exactly like Allocate when ptr is nil. Any other call is a
// programmer error, matching the original's ASSERT(false); see
// DESIGN.md's Open-Question resolution.
func (a *Arena) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	invariant.Assert(ptr == nil, "arena: Reallocate only supports growing from nil")
	return a.Allocate(newSize, align)
}

// Close releases the arena's reserved region back to the OS.
func (a *Arena) Close() error {
	return a.mem.Release(a.region)
}
