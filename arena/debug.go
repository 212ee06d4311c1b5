//go:build corert_debug

package arena

import (
	"unsafe"

	"github.com/kestrelcore/corert/alloc"
)

// trackAllocation registers ptr with the process-wide debug allocation
// registry (spec.md §3's "Allocation-info node"), restoring the
// original's #ifdef LUMIX_DEBUG instrumentation under this module's
// build-tag idiom.
func trackAllocation(ptr unsafe.Pointer, size uintptr) {
	alloc.RegisterAllocation(ptr, size, "arena")
}
