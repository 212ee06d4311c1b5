//go:build linux

package ossync

import "golang.org/x/sys/unix"

// SetAffinity pins the calling goroutine's OS thread to the CPUs set in
// mask (bit i selects CPU i), mirroring the original's
// Thread::setAffinityMask on Linux. Because runtime.LockOSThread only
// binds a goroutine to an OS thread for the *calling* goroutine,
// SetAffinity must be invoked from inside fn, the function passed to
// Create, not from the creator; job.Init's worker function does this
// before entering the worker loop.
func SetAffinity(mask uint64) error {
	var set unix.CPUSet
	for cpu := 0; cpu < 64; cpu++ {
		if mask&(1<<uint(cpu)) != 0 {
			set.Set(cpu)
		}
	}
	return unix.SchedSetaffinity(0, &set)
}
