// Package stackalloc implements the single-slot inline-buffer-with-fallback
// allocator spec.md §4.G calls for, grounded on
// original_source/src/core/allocators.h's StackAllocator<CAPACITY, ALIGN>:
// one allocation is served from a fixed local buffer; anything beyond that
// (either because the buffer is already in use, or the request is too
// large) goes to a fallback allocator. Go generics have no non-type
// template parameters the way C++'s CAPACITY/ALIGN do, so capacity and
// alignment are constructor arguments instead (see DESIGN.md's
// Open-Question resolution).
package stackalloc

import (
	"unsafe"

	"github.com/kestrelcore/corert/alloc"
	"github.com/kestrelcore/corert/invariant"
)

// Stack is a one-allocation-at-a-time inline buffer backed by fallback
// for everything else.
type Stack struct {
	capacity uintptr
	align    uintptr
	mem      []byte
	allocated bool
	fallback alloc.Interface
}

var _ alloc.Interface = (*Stack)(nil)

// NewStack creates a Stack with the given inline capacity/alignment,
// spilling to fallback whenever the inline slot can't serve a request.
func NewStack(capacity, align uintptr, fallback alloc.Interface) *Stack {
	return &Stack{
		capacity: capacity,
		align:    align,
		mem:      make([]byte, capacity),
		fallback: fallback,
	}
}

func (s *Stack) memPtr() unsafe.Pointer {
	return unsafe.Pointer(&s.mem[0])
}

func (s *Stack) isInline(ptr unsafe.Pointer) bool {
	return ptr == s.memPtr()
}

// Allocate serves from the inline buffer when it is free and size fits;
// otherwise delegates to fallback.
func (s *Stack) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	invariant.Assert(align <= s.align, "stackalloc: requested align %d exceeds Stack's %d", align, s.align)
	if !s.allocated && size <= s.capacity {
		s.allocated = true
		return s.memPtr(), nil
	}
	return s.fallback.Allocate(size, align)
}

// Deallocate frees ptr, recognizing the inline slot by pointer identity.
func (s *Stack) Deallocate(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if s.isInline(ptr) {
		s.allocated = false
		return
	}
	s.fallback.Deallocate(ptr)
}

// Reallocate implements the original's three cases: growing from nil,
// resizing the inline allocation (in place if it still fits, moving to
// fallback with a memcpy otherwise), and resizing a fallback allocation
// (delegating, or moving back into the inline slot if it now fits and
// the slot is free).
func (s *Stack) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	invariant.Assert(align <= s.align, "stackalloc: requested align %d exceeds Stack's %d", align, s.align)
	if ptr == nil {
		return s.Allocate(newSize, align)
	}

	if s.isInline(ptr) {
		invariant.Assert(s.allocated, "stackalloc: Reallocate called on inline pointer that isn't marked allocated")
		if newSize <= s.capacity {
			return s.memPtr(), nil
		}
		s.allocated = false
		next, err := s.fallback.Allocate(newSize, align)
		if err != nil {
			return nil, err
		}
		copy(unsafe.Slice((*byte)(next), s.capacity), s.mem)
		return next, nil
	}

	if newSize > s.capacity || s.allocated {
		return s.fallback.Reallocate(ptr, newSize, oldSize, align)
	}
	copy(s.mem, unsafe.Slice((*byte)(ptr), newSize))
	s.allocated = true
	s.fallback.Deallocate(ptr)
	return s.memPtr(), nil
}

// Close asserts the inline slot has been freed, matching the original's
// destructor assertion ASSERT(!m_allocated).
func (s *Stack) Close() {
	invariant.Assert(!s.allocated, "stackalloc: Close called with the inline slot still allocated")
}
