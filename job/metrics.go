package job

import (
	"strconv"

	"github.com/kestrelcore/corert/atomicx"
)

// Metrics accumulates lightweight scheduler counters. Queue occupancy is
// not tracked: ReadMetrics lists each queue's name and ring capacity only
// (see QueueDepth).
type Metrics struct {
	jobsExecuted     atomicx.Int64
	fibersCreated    atomicx.Int64
	fibersReused     atomicx.Int64
	signalWaits      atomicx.Int64
}

func (m *Metrics) recordJobExecuted() { m.jobsExecuted.Add(1) }
func (m *Metrics) recordFiberCreated() { m.fibersCreated.Add(1) }
func (m *Metrics) recordFiberReused() { m.fibersReused.Add(1) }
func (m *Metrics) recordSignalWait()  { m.signalWaits.Add(1) }

// Snapshot is a point-in-time read of the scheduler's metrics and
// per-queue capacities, intended for diagnostics (see job.Dump in
// snapshot.go), not for hot-path decision making.
type Snapshot struct {
	Workers       int           `msgpack:"workers"`
	JobsExecuted  int64         `msgpack:"jobs_executed"`
	FibersCreated int64         `msgpack:"fibers_created"`
	FibersReused  int64         `msgpack:"fibers_reused"`
	SignalWaits   int64         `msgpack:"signal_waits"`
	FreeFibers    int           `msgpack:"free_fibers"`
	QueueDepths   []QueueDepth  `msgpack:"queue_depths"`
}

// QueueDepth names one queue and reports its ring capacity. The number
// of items queued at snapshot time is not recorded.
type QueueDepth struct {
	Name     string `msgpack:"name"`
	Capacity int    `msgpack:"capacity"`
}

// ReadMetrics takes a snapshot of the running scheduler's counters and
// queue set. Safe to call concurrently with job execution.
func ReadMetrics() Snapshot {
	sys := currentSystem()

	sys.sync.Enter()
	freeCount := len(sys.freeFibers)
	sys.sync.Exit()

	snap := Snapshot{
		Workers:       len(sys.workers),
		JobsExecuted:  sys.metrics.jobsExecuted.Load(),
		FibersCreated: sys.metrics.fibersCreated.Load(),
		FibersReused:  sys.metrics.fibersReused.Load(),
		SignalWaits:   sys.metrics.signalWaits.Load(),
		FreeFibers:    freeCount,
	}
	snap.QueueDepths = append(snap.QueueDepths, QueueDepth{Name: "global", Capacity: sys.globalQueue.Capacity()})
	for i, w := range sys.workers {
		snap.QueueDepths = append(snap.QueueDepths, QueueDepth{Name: workerQueueName(i), Capacity: w.queue.Capacity()})
	}
	return snap
}

func workerQueueName(i int) string {
	return "worker-" + strconv.Itoa(i)
}
