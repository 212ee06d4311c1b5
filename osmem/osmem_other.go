//go:build !linux && !darwin

package osmem

// Reserve falls back to an eagerly-committed, zeroed allocation on
// platforms without a cheap reserve-only mapping primitive wired up in
// this module; Commit below is then a documented no-op.
func (System) Reserve(size uintptr) ([]byte, error) {
	return make([]byte, size), nil
}

// Commit is a no-op: Reserve already backed the region with real memory.
func (System) Commit(region []byte, offset, size uintptr) error {
	return nil
}

// Release drops the slice's only strong reference; the Go garbage
// collector reclaims it. There is no explicit unmap on this fallback
// path.
func (System) Release(region []byte) error {
	return nil
}
