// Package alloc defines the minimal allocator vtable every concrete
// allocator in this module implements (bucketalloc.Allocator, arena.Arena,
// stackalloc.Stack, and the ProxyAllocator/TagAllocator wrappers here),
// grounded on spec.md §9's explicit guidance to "keep a minimal
// vtable-style interface, avoid generics": job.System stores
// alloc.Interface values, not a type parameter.
package alloc

import "unsafe"

// Interface is the shared allocator contract. size and align are in
// bytes; align is always a power of two. Deallocate on a nil ptr is a
// no-op, matching the original's free(nullptr) tolerance.
type Interface interface {
	Allocate(size, align uintptr) (unsafe.Pointer, error)
	Deallocate(ptr unsafe.Pointer)
	Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error)
}
