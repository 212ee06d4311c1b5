//go:build !corert_debug

package arena

import "unsafe"

// trackAllocation is a no-op outside corert_debug builds.
func trackAllocation(ptr unsafe.Pointer, size uintptr) {}
