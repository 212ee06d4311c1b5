//go:build linux || darwin

package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Reserve maps size bytes PROT_NONE so no physical memory backs the
// region until Commit is called, matching the original's two-phase
// reserve-then-commit scheme for the arena and page allocators.
func (System) Reserve(size uintptr) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("osmem: reserve %d bytes: %w", size, err)
	}
	return b, nil
}

// Commit makes region[offset:offset+size] readable/writable, backing it
// with physical memory.
func (System) Commit(region []byte, offset, size uintptr) error {
	if err := unix.Mprotect(region[offset:offset+size], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("osmem: commit %d bytes at offset %d: %w", size, offset, err)
	}
	return nil
}

// Release unmaps a region previously returned by Reserve.
func (System) Release(region []byte) error {
	if err := unix.Munmap(region); err != nil {
		return fmt.Errorf("osmem: release: %w", err)
	}
	return nil
}
