package ossync

import "sync"

// CondVar wraps sync.Cond with the spec.md-vocabulary method names:
// SleepOn suspends the caller until WakeOne (or WakeAll) is called by
// another goroutine holding the same Mutex.
type CondVar struct {
	cond *sync.Cond
	mu   *Mutex
}

// NewCondVar creates a condition variable associated with mu; every
// SleepOn call on this CondVar must be made with mu entered.
func NewCondVar(mu *Mutex) *CondVar {
	return &CondVar{cond: sync.NewCond(&mu.mu), mu: mu}
}

// SleepOn must be called with mu already entered; it releases mu and
// blocks until woken, then re-acquires mu before returning, exactly like
// the original's ConditionVariable::sleep(Mutex&).
func (c *CondVar) SleepOn() {
	c.cond.Wait()
}

// WakeOne wakes a single goroutine blocked in SleepOn.
func (c *CondVar) WakeOne() {
	c.cond.Signal()
}

// WakeAll wakes every goroutine blocked in SleepOn. Not present in
// spec.md's B component (which only asks for wakeup-one) but required by
// job's backup-worker enable/disable broadcast, where more than one
// backup worker may be parked on the same condition variable.
func (c *CondVar) WakeAll() {
	c.cond.Broadcast()
}
