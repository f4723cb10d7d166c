package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"splice/internal/config"
	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/storage"
)

var (
	// ErrNoTask signals that no ready task appeared within the allocate
	// wait window. Retryable, never a job failure.
	ErrNoTask = errors.New("no task available")
	// ErrOutputMissing rejects a success report whose output was never
	// durably stored.
	ErrOutputMissing = errors.New("task output not stored")
)

// Scheduler owns job lifecycle and task allocation on top of the jobs store.
// All mutating entry points are safe for concurrent use; multi-step
// transitions (complete then expand) serialize on an internal mutex while
// single-task transitions rely on the store's guarded updates.
type Scheduler struct {
	cfg     *config.Config
	store   *jobs.Store
	content storage.ContentStore
	logger  *slog.Logger

	// mu serializes multi-step transitions (complete then expand) across
	// callers; waitMu guards only the wake channel swap.
	mu     sync.Mutex
	waitMu sync.Mutex
	waitCh chan struct{}
}

// New constructs a scheduler. The content store is consulted before any
// success report is accepted.
func New(cfg *config.Config, store *jobs.Store, content storage.ContentStore, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		content: content,
		logger:  logger,
		waitCh:  make(chan struct{}),
	}
}

// Run drives the periodic lease reclaim sweep until ctx is cancelled.
// Allocation also reclaims opportunistically; this loop bounds how long an
// abandoned lease can linger when no worker is polling.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReclaimInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reclaim(ctx)
		}
	}
}

func (s *Scheduler) reclaim(ctx context.Context) {
	reclaimed, err := s.store.ReclaimExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("lease reclaim failed", logging.Error(err))
		return
	}
	if reclaimed > 0 {
		s.logger.Info("reclaimed expired leases", logging.Int64("count", reclaimed))
		s.wake()
	}
}

// wake broadcasts "new work may be ready" to every blocked allocate call.
// Each waiter retries; closing the channel cannot leave a phantom waiter
// because abandoning a receive carries no cost.
func (s *Scheduler) wake() {
	s.waitMu.Lock()
	close(s.waitCh)
	s.waitCh = make(chan struct{})
	s.waitMu.Unlock()
}

func (s *Scheduler) waitChan() <-chan struct{} {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()
	return s.waitCh
}
