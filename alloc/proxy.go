package alloc

import (
	"unsafe"

	"github.com/kestrelcore/corert/atomicx"
	"github.com/kestrelcore/corert/invariant"
)

// ProxyAllocator wraps an Interface and counts live allocations, the
// leak-detection layer spec.md §7 calls "leaking allocations" — every
// subsystem that owns a scoped allocator (a job's arena, a fiber's
// bucketed small-object pool) is expected to wrap it in a ProxyAllocator
// during tests so a forgotten Deallocate surfaces immediately at Close.
type ProxyAllocator struct {
	parent Interface
	live   atomicx.Int32
}

var _ Interface = (*ProxyAllocator)(nil)

// NewProxyAllocator wraps parent.
func NewProxyAllocator(parent Interface) *ProxyAllocator {
	return &ProxyAllocator{parent: parent}
}

func (p *ProxyAllocator) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	ptr, err := p.parent.Allocate(size, align)
	if err != nil {
		return nil, err
	}
	p.live.Add(1)
	return ptr, nil
}

func (p *ProxyAllocator) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	p.parent.Deallocate(ptr)
	p.live.Sub(1)
}

// Reallocate treats a nil ptr as an allocation and a zero newSize as a
// free, matching the original's realloc-family conventions.
func (p *ProxyAllocator) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	switch {
	case ptr == nil:
		return p.Allocate(newSize, align)
	case newSize == 0:
		p.Deallocate(ptr)
		return nil, nil
	default:
		return p.parent.Reallocate(ptr, newSize, oldSize, align)
	}
}

// LiveCount reports the number of allocations made through this proxy
// that have not yet been freed.
func (p *ProxyAllocator) LiveCount() int32 {
	return p.live.Load()
}

// Close asserts every allocation made through this proxy has been freed.
func (p *ProxyAllocator) Close() {
	invariant.Assert(p.live.Load() == 0, "alloc: ProxyAllocator closed with %d live allocations", p.live.Load())
}
