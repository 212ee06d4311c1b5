package alloc

import (
	"unsafe"

	"github.com/kestrelcore/corert/goroutinelocal"
)

// TagAllocator attributes every allocation it makes to a named subsystem
// ("physics", "render", ...) for diagnostics, without changing where the
// bytes actually come from: Allocate/Deallocate/Reallocate all delegate
// to target. target is resolved once at
// construction by walking Parent() while the parent is itself a
// TagAllocator, collapsing a chain of tags down to the first non-tag
// allocator — it does not re-run if an ancestor is later rewrapped; see
// DESIGN.md's Open-Question resolution. Callers that need the active tag
// for the current goroutine (mirroring the original's thread-local
// "current tag" pointer) go through package goroutinelocal directly.
type TagAllocator struct {
	name    string
	parent  Interface
	target  Interface
}

var _ Interface = (*TagAllocator)(nil)

// NewTagAllocator creates a TagAllocator named name wrapping parent. If
// parent is itself a *TagAllocator, the chain is collapsed immediately:
// allocations go straight to parent's own effective target, so nested
// tags cost nothing at the allocation fast path.
func NewTagAllocator(name string, parent Interface) *TagAllocator {
	t := &TagAllocator{name: name, parent: parent}
	t.target = parent
	for {
		if pt, ok := t.target.(*TagAllocator); ok {
			t.target = pt.target
			continue
		}
		break
	}
	return t
}

func (t *TagAllocator) Name() string { return t.name }

// Parent returns the allocator this tag was constructed against (before
// chain collapse), for diagnostics that want to print the tag hierarchy.
func (t *TagAllocator) Parent() Interface { return t.parent }

func (t *TagAllocator) Allocate(size, align uintptr) (unsafe.Pointer, error) {
	return t.target.Allocate(size, align)
}

func (t *TagAllocator) Deallocate(ptr unsafe.Pointer) {
	t.target.Deallocate(ptr)
}

func (t *TagAllocator) Reallocate(ptr unsafe.Pointer, newSize, oldSize, align uintptr) (unsafe.Pointer, error) {
	return t.target.Reallocate(ptr, newSize, oldSize, align)
}

// SetActive publishes t as the calling goroutine's active tag, the
// "thread-local active tag" spec.md §4.H and §9 call for, realized via
// package goroutinelocal since Go has no native TLS.
func SetActive(t *TagAllocator) {
	goroutinelocal.Set(t)
}

// ActiveTag returns the calling goroutine's active tag, if one was set.
func ActiveTag() (*TagAllocator, bool) {
	v, ok := goroutinelocal.Get()
	if !ok {
		return nil, false
	}
	t, ok := v.(*TagAllocator)
	return t, ok
}

// WithActiveTag runs fn with t set as the calling goroutine's active tag,
// restoring whatever was active beforehand — the scoped setter spec.md §9
// asks for so tests get deterministic, goroutine-local tag scoping.
func WithActiveTag(t *TagAllocator, fn func()) {
	goroutinelocal.WithValue(t, fn)
}
