// Package pagealloc implements the page-granularity free-list allocator
// spec.md §4.D calls for, grounded on
// original_source/src/core/page_allocator.cpp: pages are reserved and
// committed 4 KiB at a time from osmem and never returned to the OS
// until Close, matching the original's "pages stay resident for the
// program's lifetime, recycled between callers" design.
package pagealloc

import (
	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/invariant"
	"github.com/kestrelcore/corert/osmem"
	"github.com/kestrelcore/corert/ossync"
)

// PageAllocator hands out osmem.PageSize-sized pages, reusing freed pages
// before reserving new ones from the OS.
type PageAllocator struct {
	mem osmem.Allocator

	mu        ossync.Mutex
	freeList  [][]byte
	allocated atomicx.Int32
}

// New creates a PageAllocator backed by mem. Passing osmem.System{}
// wires it to real virtual memory; tests may substitute a fake.
func New(mem osmem.Allocator) *PageAllocator {
	return &PageAllocator{mem: mem}
}

// Allocate returns one committed page, either reused from the free list
// (keeping whatever it last held) or freshly reserved and committed from
// the OS.
func (a *PageAllocator) Allocate() ([]byte, error) {
	a.mu.Enter()
	if n := len(a.freeList); n > 0 {
		page := a.freeList[n-1]
		a.freeList = a.freeList[:n-1]
		a.mu.Exit()
		a.allocated.Add(1)
		return page, nil
	}
	a.mu.Exit()

	region, err := a.mem.Reserve(osmem.PageSize)
	if err != nil {
		return nil, err
	}
	if err := a.mem.Commit(region, 0, osmem.PageSize); err != nil {
		return nil, err
	}
	a.allocated.Add(1)
	return region, nil
}

// Deallocate returns page to the free list for reuse; it is never
// released back to the OS until Close.
func (a *PageAllocator) Deallocate(page []byte) {
	a.mu.Enter()
	a.freeList = append(a.freeList, page)
	a.mu.Exit()
	a.allocated.Add(-1)
}

// AllocatedCount reports the number of pages currently checked out (not
// sitting on the free list).
func (a *PageAllocator) AllocatedCount() int32 {
	return a.allocated.Load()
}

// Close asserts every allocated page has been returned, then releases
// the free list back to the OS. Leaking pages past Close is a programmer
// error in the caller, not a recoverable condition.
func (a *PageAllocator) Close() error {
	invariant.Assert(a.allocated.Load() == 0, "pagealloc: Close called with %d pages still allocated", a.allocated.Load())
	a.mu.Enter()
	defer a.mu.Exit()
	for _, page := range a.freeList {
		if err := a.mem.Release(page); err != nil {
			return err
		}
	}
	a.freeList = nil
	return nil
}
