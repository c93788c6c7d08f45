package protocol

import (
	"sync"
)

// Counters tallies the outstanding exchanges of every worker/master pair. Pending counts start at
// the number of requests and are decremented as the master completes each half of a cycle.
// It is safe for concurrent use so the goroutine variant can share it
type Counters struct {
	mu           sync.Mutex
	pendingWrite []int
	pendingRead  []int
	failures     []error
}

func NewCounters(workers, requests int) *Counters {
	c := &Counters{
		pendingWrite: make([]int, workers),
		pendingRead:  make([]int, workers),
	}
	for i := 0; i < workers; i++ {
		c.pendingWrite[i] = requests
		c.pendingRead[i] = requests
	}
	return c
}

// Wrote records a query fully written to worker i
func (c *Counters) Wrote(i int) {
	c.mu.Lock()
	c.pendingWrite[i]--
	c.mu.Unlock()
}

// Read records a valid response read from worker i
func (c *Counters) Read(i int) {
	c.mu.Lock()
	c.pendingRead[i]--
	c.mu.Unlock()
}

// Fail records a cycle whose response did not validate. The pending read is left outstanding
func (c *Counters) Fail(err error) {
	c.mu.Lock()
	c.failures = append(c.failures, err)
	c.mu.Unlock()
}

// Snapshot returns copies of the pending counts
func (c *Counters) Snapshot() (pendingWrite, pendingRead []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pendingWrite = append([]int(nil), c.pendingWrite...)
	pendingRead = append([]int(nil), c.pendingRead...)
	return pendingWrite, pendingRead
}

// Failures returns the failed cycles recorded so far
func (c *Counters) Failures() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.failures...)
}

// Complete reports whether every pending count reached zero and no cycle failed
func (c *Counters) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.failures) > 0 {
		return false
	}
	for i := range c.pendingWrite {
		if c.pendingWrite[i] != 0 || c.pendingRead[i] != 0 {
			return false
		}
	}
	return true
}
