//go:build !corert_debug

package alloc

import "unsafe"

// AllocationInfo mirrors the debug-build type so callers can reference it
// regardless of build tags; fields are unused outside corert_debug
// builds.
type AllocationInfo struct {
	Size uintptr
	Tag  string
}

// RegisterAllocation, UnregisterAllocation and ResizeAllocation are no-ops
// outside corert_debug builds — the debug allocation registry (spec.md
// §3's "Allocation-info node") only exists when that tag is set, matching
// the original's #ifdef LUMIX_DEBUG gating.
func RegisterAllocation(ptr unsafe.Pointer, size uintptr, tag string) {}
func UnregisterAllocation(ptr unsafe.Pointer)                        {}
func ResizeAllocation(ptr unsafe.Pointer, newSize uintptr)           {}

// CheckLeaks always reports no leaks outside corert_debug builds.
func CheckLeaks() []AllocationInfo { return nil }
