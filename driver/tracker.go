package driver

import (
	"sync"
	"sync/atomic"

	"github.com/launchpad-hq/lpcore/errs"
)

// tracker assigns a monotonic id to every acquired query and counts
// completed/cancelled/active work so drainAndClose knows when it is safe
// to close the pool.
type tracker struct {
	nextID    int64
	mu        sync.Mutex
	active    map[int64]struct{}
	completed int64
	cancelled int64
	draining  atomic.Bool
}

func newTracker() *tracker {
	return &tracker{active: make(map[int64]struct{})}
}

// register assigns an id and marks it active. It fails with a retryable
// draining error if the driver is already shutting down.
func (t *tracker) register() (int64, error) {
	if t.draining.Load() {
		return 0, &errs.DriverTransient{Err: errDraining}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := t.nextID
	t.active[id] = struct{}{}
	return id, nil
}

func (t *tracker) complete(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; ok {
		delete(t.active, id)
		t.completed++
	}
}

func (t *tracker) cancel(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[id]; ok {
		delete(t.active, id)
		t.cancelled++
	}
}

func (t *tracker) activeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

func (t *tracker) activeIDs() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]int64, 0, len(t.active))
	for id := range t.active {
		ids = append(ids, id)
	}
	return ids
}

func (t *tracker) startDraining() { t.draining.Store(true) }
func (t *tracker) isDraining() bool { return t.draining.Load() }

func (t *tracker) snapshot() (completed, cancelled int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.cancelled
}
