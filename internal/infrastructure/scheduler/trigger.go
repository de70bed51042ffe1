package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobSource lists the jobs that are due at now
type JobSource func(ctx context.Context, now time.Time) ([]*Job, error)

// IntervalTrigger polls a JobSource on a fixed interval and submits what it
// returns. Jobs whose key is still queued or running are skipped.
type IntervalTrigger struct {
	name      string
	interval  time.Duration
	source    JobSource
	scheduler *Scheduler
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewIntervalTrigger creates a new trigger
func NewIntervalTrigger(name string, interval time.Duration, source JobSource, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	return &IntervalTrigger{
		name:      name,
		interval:  interval,
		source:    source,
		scheduler: scheduler,
		logger:    logger.With(zap.String("trigger", name)),
		now:       time.Now,
	}
}

// Start begins polling
func (t *IntervalTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("trigger started", zap.Duration("interval", t.interval))
	return nil
}

// Stop stops polling
func (t *IntervalTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *IntervalTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Poll(ctx)
		}
	}
}

// Poll submits every due job once and returns how many were accepted
func (t *IntervalTrigger) Poll(ctx context.Context) int {
	jobs, err := t.source(ctx, t.now().UTC())
	if err != nil {
		t.logger.Error("failed to list due jobs", zap.Error(err))
		return 0
	}

	submitted := 0
	for _, job := range jobs {
		err := t.scheduler.SubmitJob(job)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrJobAlreadyQueued):
		default:
			t.logger.Warn("failed to submit job",
				zap.String("kind", job.Kind),
				zap.String("subject_id", job.SubjectID.String()),
				zap.Error(err),
			)
		}
	}
	if submitted > 0 {
		t.logger.Info("submitted due jobs", zap.Int("count", submitted))
	}
	return submitted
}
