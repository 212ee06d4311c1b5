package osmem

import "github.com/klauspost/cpuid/v2"

// CacheLineSize reports the detected L1 data cache line size. No package
// in this module calls it; allocator state is not padded by it. Falls
// back to 64, the near-universal default, when detection fails.
func CacheLineSize() int {
	if cpuid.CPU.CacheLine > 0 {
		return cpuid.CPU.CacheLine
	}
	return 64
}

// LogicalCPUCount reports the number of logical CPUs. The job package
// sizes its default worker pool with runtime.NumCPU instead, and no
// package in this module calls this function.
func LogicalCPUCount() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return 1
}
