// Package osmem wraps raw virtual-memory operations, grounded on the
// original's os::memReserve/memCommit/memRelease
// (original_source/src/core/allocators.cpp, arena_allocator.cpp,
// page_allocator.cpp) and golang.org/x/sys/unix, the same package the
// eventloop teacher reaches for whenever it needs syscalls the standard
// library doesn't expose (fcntl flags, nonblocking pipes).
package osmem

// PageSize is the allocation granularity every allocator in this module
// builds on: arena commits, the bucketed allocator's page reservations,
// and the page allocator's free-list unit are all multiples of it.
const PageSize = 4096

// Allocator is the platform-neutral contract Reserve/Commit/Release
// satisfy; pagealloc and arena depend on this interface rather than on
// osmem's package-level functions directly, so tests can substitute an
// in-memory fake without touching real mappings.
type Allocator interface {
	Reserve(size uintptr) ([]byte, error)
	Commit(region []byte, offset, size uintptr) error
	Release(region []byte) error
}

// System is the Allocator backed by real OS virtual memory (unix.Mmap /
// unix.Mprotect / unix.Munmap on the platforms this module builds for).
type System struct{}

var _ Allocator = System{}
