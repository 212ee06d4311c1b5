package job

import "runtime"

// options configures Init. Construct via the With* Option funcs rather than
// setting fields directly, matching the ambient config style the rest
// of the module uses.
type options struct {
	workers                int
	globalQueueCapacity    int
	perWorkerQueueCapacity int
	affinity               bool
	metrics                bool
}

// Option configures the scheduler at Init time.
type Option func(*options)

func defaultOptions() options {
	return options{
		workers:                runtime.NumCPU(),
		globalQueueCapacity:    64,
		perWorkerQueueCapacity: 4,
		affinity:               true,
		metrics:                false,
	}
}

// WithWorkers sets the number of worker threads. Values below 1 are
// clamped to 1 at Init time.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithGlobalQueueCapacity overrides the global WorkQueue's ring capacity
// (spec default 64).
func WithGlobalQueueCapacity(n int) Option {
	return func(o *options) { o.globalQueueCapacity = n }
}

// WithWorkerQueueCapacity overrides each per-worker WorkQueue's ring
// capacity (spec default 4).
func WithWorkerQueueCapacity(n int) Option {
	return func(o *options) { o.perWorkerQueueCapacity = n }
}

// WithAffinity enables or disables pinning worker i to logical CPU i via
// ossync.SetAffinity. Disabled automatically wherever SetAffinity is
// unsupported (see ossync.ErrAffinityUnsupported), since Init ignores
// every error SetAffinity returns.
func WithAffinity(enabled bool) Option {
	return func(o *options) { o.affinity = enabled }
}

// WithMetrics records whether metrics were requested. Init does not read
// it: the counters returned by ReadMetrics are collected either way.
func WithMetrics(enabled bool) Option {
	return func(o *options) { o.metrics = enabled }
}
