package sweeper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"holds-service/internal/models"
)

// Job runs the expiration sweep on a fixed interval. Start/Stop manage the
// timer; a separate in-flight guard keeps overlapping sweeps from running
// when one sweep outlasts the interval.
type Job struct {
	sweeper *Sweeper

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	interval time.Duration

	sweeping atomic.Bool
}

// NewJob creates a job around the given sweeper
func NewJob(sweeper *Sweeper) *Job {
	return &Job{sweeper: sweeper}
}

// Start launches the recurring sweep, running once immediately and then every
// interval. Returns false if the job is already running.
func (j *Job) Start(interval time.Duration) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	j.cancel = cancel
	j.done = done
	j.interval = interval

	go j.run(ctx, done)

	log.Info().Dur("interval", interval).Msg("Expiration job started")
	return true
}

// Stop halts the recurring sweep and waits for the loop to exit. Returns
// false if the job was not running.
func (j *Job) Stop() bool {
	j.mu.Lock()
	if j.cancel == nil {
		j.mu.Unlock()
		return false
	}
	cancel := j.cancel
	done := j.done
	j.cancel = nil
	j.done = nil
	j.mu.Unlock()

	cancel()
	<-done

	log.Info().Msg("Expiration job stopped")
	return true
}

// IsRunning reports whether the recurring sweep is active
func (j *Job) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancel != nil
}

// Status reports whether the job is running and at what interval
func (j *Job) Status() models.JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()

	status := models.JobStatus{Running: j.cancel != nil}
	if status.Running {
		status.IntervalMinutes = int(j.interval / time.Minute)
	}
	return status
}

// RunOnce triggers a single sweep, honoring the in-flight guard. Used by the
// manual trigger endpoint.
func (j *Job) RunOnce(ctx context.Context) (*models.ExpirationResult, error) {
	if !j.sweeping.CompareAndSwap(false, true) {
		return nil, models.NewBusinessError(models.ErrorCodeJobAlreadyRunning, "An expiration sweep is already in progress")
	}
	defer j.sweeping.Store(false)

	return j.sweeper.ExpireOldReservations(ctx)
}

func (j *Job) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// Cancellation only stops future ticks. An in-flight sweep runs to
	// completion on its own context; Stop waits on done for it.
	sweepCtx := context.WithoutCancel(ctx)

	j.tick(sweepCtx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.tick(sweepCtx)
		}
	}
}

// tick runs one sweep. Errors are logged and swallowed so a failed sweep
// never kills the timer.
func (j *Job) tick(ctx context.Context) {
	if !j.sweeping.CompareAndSwap(false, true) {
		log.Warn().Msg("Skipping sweep, previous sweep still running")
		return
	}
	defer j.sweeping.Store(false)

	if _, err := j.sweeper.ExpireOldReservations(ctx); err != nil {
		log.Error().Err(err).Msg("Expiration sweep failed")
	}
}
