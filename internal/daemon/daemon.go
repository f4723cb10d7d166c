package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"splice/internal/config"
	"splice/internal/jobs"
	"splice/internal/logging"
	"splice/internal/registry"
	"splice/internal/scheduler"
	"splice/internal/storage"
)

// Daemon ties the scheduler, store, and API server together and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	sched   *scheduler.Scheduler
	content storage.ContentStore
	workers *registry.Registry

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, sched *scheduler.Scheduler, content storage.ContentStore, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil || content == nil {
		return nil, errors.New("daemon requires config, store, scheduler, and content store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "spliced.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		sched:    sched,
		content:  content,
		workers:  registry.New(),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler loop and the
// API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another spliced instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	go d.sched.Run(d.ctx)

	if err := d.api.start(d.ctx); err != nil {
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("spliced started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API server and scheduler down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("spliced stopped")
}

// Close stops the daemon and closes the jobs store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the bound API address, empty before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
