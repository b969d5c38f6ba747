package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	RetryDelay   time.Duration
	// StaleRunning is how long a running job may go without a heartbeat
	// before another loop reclaims it.
	StaleRunning time.Duration
	Heartbeat    time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4, log),
		PollInterval: envutil.Duration("WORKER_POLL_INTERVAL", time.Second, log),
		RetryDelay:   envutil.Duration("WORKER_RETRY_DELAY", 30*time.Second, log),
		StaleRunning: envutil.Duration("WORKER_STALE_RUNNING", 10*time.Minute, log),
		Heartbeat:    envutil.Duration("WORKER_HEARTBEAT", 15*time.Second, log),
	}
}

type Worker struct {
	log      *logger.Logger
	repo     jobrepo.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	cfg      Config
	wg       sync.WaitGroup
}

func NewWorker(baseLog *logger.Logger, repo jobrepo.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, cfg Config) *Worker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		cfg:      cfg,
	}
}

// Start spawns the claim loops. They stop when ctx is canceled; Wait blocks
// until the last running job has recorded its outcome.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "job_types", w.registry.Types())
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain what is runnable before waiting for the next tick.
			for ctx.Err() == nil && w.RunOnce(ctx, workerID) {
			}
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job was
// claimed.
func (w *Worker) RunOnce(ctx context.Context, workerID int) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, runtime.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
		return false
	}
	if job == nil {
		return false
	}

	jc := runtime.NewContext(ctx, job, w.repo, w.notify)
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type",
			"worker_id", workerID,
			"job_type", job.JobType,
			"job_id", job.ID,
		)
		jc.Fail("dispatch", runtime.Permanent(&missingHandlerError{JobType: job.JobType}))
		return true
	}

	stop := w.heartbeat(ctx, job)
	defer stop()

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"worker_id", workerID,
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", errFromRecover(r))
			}
		}()

		if runErr := h.Run(jc); runErr != nil && job.Status != jobs.StatusFailed {
			// Most pipelines call jc.Fail themselves; this is a safety net.
			jc.Fail("run", runErr)
		}
	}()

	w.log.Debug("Job finished",
		"worker_id", workerID,
		"job_id", job.ID,
		"job_type", job.JobType,
		"status", job.Status,
		"attempt", job.Attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return true
}

func (w *Worker) heartbeat(ctx context.Context, job *jobs.JobRun) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(w.cfg.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
					w.log.Warn("Heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
	return func() { close(done) }
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

func errFromRecover(v any) error { return &panicError{Val: v} }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
