package job

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Dump encodes a metrics Snapshot as msgpack for diagnostics tooling
// (see cmd/jobsim's --dump flag). This is a debugging aid, not a wire
// protocol: the encoding is not guaranteed stable across versions.
func Dump() ([]byte, error) {
	snap := ReadMetrics()
	b, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("job: encoding snapshot: %w", err)
	}
	return b, nil
}

// DecodeSnapshot reverses Dump, for tools that read a previously saved
// snapshot file rather than a live scheduler.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(b, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("job: decoding snapshot: %w", err)
	}
	return snap, nil
}
