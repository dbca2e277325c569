package branch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CleanupOptions configures Cleanup.
type CleanupOptions struct {
	MaxAgeDays    int
	SkipProtected bool
}

// CleanupResult reports which branches Cleanup deleted versus skipped.
type CleanupResult struct {
	Deleted []string
	Skipped []string
}

// Cleanup deletes every stale branch whose LastAccessedAt is older than
// MaxAgeDays and that isn't already deleting (or, if SkipProtected,
// protected). A delete failure is recorded and does not abort the sweep.
func (e *Engine) Cleanup(ctx context.Context, opts CleanupOptions) (*CleanupResult, error) {
	branches, err := e.store.List()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -opts.MaxAgeDays)
	result := &CleanupResult{}
	for _, b := range branches {
		if !live(b) {
			continue
		}
		if opts.SkipProtected && b.Protected {
			result.Skipped = append(result.Skipped, b.Slug)
			continue
		}
		if b.LastAccessedAt.After(cutoff) {
			continue
		}

		// Record the branch as stale before the sweep drops it, so a
		// concurrent reader of Branch.Status observes the transition
		// instead of active jumping straight to gone.
		if b.Status != StatusStale {
			b.Status = StatusStale
			if err := e.store.Upsert(b); err != nil {
				e.logger.Warn("branch: failed to mark branch stale", zap.String("slug", b.Slug), zap.Error(err))
			}
		}

		if err := e.Delete(ctx, b.Slug, false); err != nil {
			e.logger.Warn("branch: cleanup failed to delete branch", zap.String("slug", b.Slug), zap.Error(err))
			result.Skipped = append(result.Skipped, b.Slug)
			continue
		}
		result.Deleted = append(result.Deleted, b.Slug)
	}
	return result, nil
}

const cleanupErrorHistoryCap = 20

// CleanupScheduler runs Cleanup on a fixed interval, with overrun
// protection (a tick is skipped while the previous sweep is still
// running) and a bounded ring of the most recent sweep errors.
type CleanupScheduler struct {
	engine *Engine
	opts   CleanupOptions

	mu      sync.Mutex
	running bool
	errs    []error

	stop chan struct{}
	done chan struct{}
}

// NewCleanupScheduler constructs a scheduler bound to engine.
func NewCleanupScheduler(engine *Engine, opts CleanupOptions) *CleanupScheduler {
	return &CleanupScheduler{engine: engine, opts: opts, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start runs a cleanup sweep every interval until Stop is called.
func (s *CleanupScheduler) Start(ctx context.Context, interval time.Duration) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

func (s *CleanupScheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.engine.Cleanup(ctx, s.opts); err != nil {
		s.recordError(err)
	}
}

func (s *CleanupScheduler) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	if len(s.errs) > cleanupErrorHistoryCap {
		s.errs = s.errs[len(s.errs)-cleanupErrorHistoryCap:]
	}
}

// Errors returns a snapshot of the bounded recent-error ring.
func (s *CleanupScheduler) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]error, len(s.errs))
	copy(out, s.errs)
	return out
}

// Stop ends the scheduler and waits for any in-flight sweep to finish.
func (s *CleanupScheduler) Stop() {
	close(s.stop)
	<-s.done
}
