//go:build !linux

package ossync

// SetAffinity is unsupported outside Linux in this module; callers should
// treat a non-nil return as advisory (workers still run, just without
// CPU pinning).
func SetAffinity(mask uint64) error {
	_ = mask
	return ErrAffinityUnsupported
}
