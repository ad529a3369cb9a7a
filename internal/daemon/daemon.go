package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelscan/internal/config"
	"reelscan/internal/detection"
	"reelscan/internal/gateway"
	"reelscan/internal/jobs"
	"reelscan/internal/logging"
	"reelscan/internal/media/audioextract"
	"reelscan/internal/media/capture"
	"reelscan/internal/pipeline"
	"reelscan/internal/preflight"
	"reelscan/internal/transcription"
)

// Daemon owns the job store, pipeline orchestrator, and API gateway, and
// enforces single-instance execution with a lock file.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *jobs.Store
	orchestrator *pipeline.Orchestrator
	gateway      *gateway.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	IndexPath    string
	LockFilePath string
	Jobs         jobs.Stats
	Checks       []preflight.Result
}

// New constructs a daemon with its services wired from the config.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job index: %w", err)
	}

	transcriber, err := transcription.NewService(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	classifier, err := detection.NewService(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	orchestrator := pipeline.NewOrchestrator(cfg, logger, store,
		capture.NewService(cfg.Capture, logger),
		audioextract.NewService(cfg.Audio, logger),
		transcriber,
		classifier,
	)

	lockPath := filepath.Join(cfg.Paths.DataDir, "reelscand.lock")
	return &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        store,
		orchestrator: orchestrator,
		gateway:      gateway.NewServer(cfg, store, orchestrator, logger),
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelscan daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed",
				logging.String("check", result.Name))
			continue
		}
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.gateway.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.gateway.Addr()))
	return nil
}

// Stop shuts down the API, waits for in-flight jobs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.gateway.Stop()
	d.orchestrator.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Submit registers a job directly, bypassing the HTTP API.
func (d *Daemon) Submit(ctx context.Context, videoURL string) (*jobs.Job, error) {
	return d.orchestrator.Submit(ctx, videoURL)
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		IndexPath:    d.store.Path(),
		LockFilePath: d.lockPath,
		Checks:       preflight.RunAll(ctx, d.cfg),
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Jobs = stats
	}
	return status
}
