// Package bucketalloc implements the default small-object allocator
// spec.md §4.E calls for, grounded on
// original_source/src/core/allocators.cpp's DefaultAllocator: a single
// 64 MiB reservation (16384 * 4 KiB pages) carved into four bins
// (8/16/32/64 bytes), one bin per page — a page, once assigned to a bin,
// serves only that bin's objects for the allocator's lifetime, so
// Deallocate recovers an object's bin from the page containing it rather
// than from a per-object header. Anything larger, or aligned more
// strictly than its own size, takes a large-object path.
package bucketalloc

import (
	"fmt"
	"math/bits"
	"sync"
	"unsafe"

	"github.com/kestrelcore/corert/alloc"
	"github.com/kestrelcore/corert/invariant"
	"github.com/kestrelcore/corert/osmem"
	"github.com/kestrelcore/corert/ossync"
)

// bins is the fixed set of small-object sizes this allocator serves
// directly; anything larger takes the large-object path.
var bins = [4]uintptr{8, 16, 32, 64}

const (
	reservedPages = 16384 // 64 MiB / 4 KiB
	reservedBytes = reservedPages * osmem.PageSize
)

// freeNode is an intrusive singly linked free-list entry written into the
// first bytes of a free small-object slot.
type freeNode struct {
	next *freeNode
}

// Allocator is the bucketed small-object allocator.
type Allocator struct {
	mem    osmem.Allocator
	region []byte
	base   uintptr

	mu         ossync.Mutex
	pageBin    []int8 // per-page bin index, -1 until first use
	nextPage   int    // next never-yet-touched page
	pageOffset [4]int // byte offset of the next free slot within the bin's current page, per bin
	curPage    [4]int // page index currently feeding each bin, -1 if none assigned yet
	freeHeads  [4]*freeNode

	// largeTable maps a returned pointer to its over-allocated base, the
	// side table the original's aligned_alloc emulation needs since Go
	// exposes no public aligned-malloc.
	largeMu    sync.Mutex
	largeTable map[unsafe.Pointer][]byte
}

var _ alloc.Interface = (*Allocator)(nil)

// New reserves and commits the allocator's backing region from mem.
func New(mem osmem.Allocator) (*Allocator, error) {
	region, err := mem.Reserve(reservedBytes)
	if err != nil {
		return nil, fmt.Errorf("bucketalloc: reserve: %w", err)
	}
	if err := mem.Commit(region, 0, reservedBytes); err != nil {
		return nil, fmt.Errorf("bucketalloc: commit: %w", err)
	}
	a := &Allocator{
		mem:        mem,
		region:     region,
		base:       uintptr(unsafe.Pointer(&region[0])),
		pageBin:    make([]int8, reservedPages),
		largeTable: make(map[unsafe.Pointer][]byte),
	}
	for i := range a.pageBin {
		a.pageBin[i] = -1
	}
	for i := range a.curPage {
		a.curPage[i] = -1
	}
	return a, nil
}

// sizeToBin returns the index into bins serving size, or -1 if size
// exceeds the largest bin. bits.Len is the portable equivalent of the
// original's _BitScanReverse/__builtin_clz used to round up to a power
// of two.
func sizeToBin(size uintptr) int {
	if size == 0 {
		size = 1
	}
	rounded := uintptr(1) << bits.Len(uint(size-1))
	for i, b := range bins {
		if rounded <= b {
			return i
		}
	}
	return -1
}

// Allocate returns size bytes aligned to align. Small, naturally aligned
// requests are served from a bin's free list or carved out of the bin's
// current page; everything else takes the large path.
func (a *Allocator) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	if bin := sizeToBin(size); bin >= 0 && align <= max(size, 1) {
		return a.allocateSmall(bin), nil
	}
	return a.allocateLarge(size, align)
}

func (a *Allocator) allocateSmall(bin int) unsafe.Pointer {
	a.mu.Enter()
	defer a.mu.Exit()

	if head := a.freeHeads[bin]; head != nil {
		a.freeHeads[bin] = head.next
		return unsafe.Pointer(head)
	}

	binSize := int(bins[bin])
	if a.curPage[bin] < 0 || a.pageOffset[bin]+binSize > osmem.PageSize {
		invariant.Assert(a.nextPage < reservedPages, "bucketalloc: region exhausted (all %d pages assigned)", reservedPages)
		page := a.nextPage
		a.nextPage++
		a.pageBin[page] = int8(bin)
		a.curPage[bin] = page
		a.pageOffset[bin] = 0
	}

	page := a.curPage[bin]
	off := page*osmem.PageSize + a.pageOffset[bin]
	a.pageOffset[bin] += binSize
	return unsafe.Pointer(&a.region[off])
}

func (a *Allocator) allocateLarge(size, align uintptr) (unsafe.Pointer, error) {
	if align < 1 {
		align = 1
	}
	raw := make([]byte, size+align-1)
	base := uintptr(unsafe.Pointer(&raw[0]))
	aligned := (base + align - 1) &^ (align - 1)
	offset := aligned - base
	ptr := unsafe.Pointer(&raw[offset])

	a.largeMu.Lock()
	a.largeTable[ptr] = raw
	a.largeMu.Unlock()
	return ptr, nil
}

// Deallocate frees ptr, which must have come from Allocate/Reallocate on
// this Allocator. A nil ptr is a no-op. The object's bin (for a small
// pointer) is recovered from the page containing it, not from a
// per-object header.
func (a *Allocator) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if bin, ok := a.binOf(ptr); ok {
		node := (*freeNode)(ptr)
		a.mu.Enter()
		node.next = a.freeHeads[bin]
		a.freeHeads[bin] = node
		a.mu.Exit()
		return
	}
	a.largeMu.Lock()
	delete(a.largeTable, ptr)
	a.largeMu.Unlock()
}

// binOf reports which bin ptr was carved from, given the page that
// contains it, or false if ptr lies outside the reserved region (i.e. it
// is a large-path pointer).
func (a *Allocator) binOf(ptr unsafe.Pointer) (int, bool) {
	p := uintptr(ptr)
	if p < a.base || p >= a.base+uintptr(len(a.region)) {
		return 0, false
	}
	page := int((p - a.base) / osmem.PageSize)
	bin := a.pageBin[page]
	if bin < 0 {
		return 0, false
	}
	return int(bin), true
}

// Reallocate keeps ptr unchanged when oldSize and newSize map to the same
// bin; otherwise it performs allocate-copy-free, copying
// min(oldSize, newSize) bytes.
func (a *Allocator) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	if ptr == nil {
		return a.Allocate(newSize, align)
	}
	if newSize == 0 {
		a.Deallocate(ptr)
		return nil, nil
	}

	oldBin, newBin := sizeToBin(oldSize), sizeToBin(newSize)
	if oldBin >= 0 && oldBin == newBin {
		return ptr, nil
	}

	next, err := a.Allocate(newSize, align)
	if err != nil {
		return nil, err
	}
	n := oldSize
	if newSize < n {
		n = newSize
	}
	src := unsafe.Slice((*byte)(ptr), n)
	dst := unsafe.Slice((*byte)(next), n)
	copy(dst, src)
	a.Deallocate(ptr)
	return next, nil
}

// Close releases the reserved region back to the OS. Outstanding
// allocations must not be used after Close.
func (a *Allocator) Close() error {
	return a.mem.Release(a.region)
}
