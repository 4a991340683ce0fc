package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// TaskCleanupExpired is the asynq task type the scheduler enqueues and the
// server handles, following the teacher's TaskDeployApp-style naming.
const TaskCleanupExpired = "cleanup:expired"

// AsynqScheduler runs the sweep as a recurring asynq task instead of an
// in-process ticker, for the case where multiple portd-adjacent processes
// share one Redis and should not each run their own ticker.
type AsynqScheduler struct {
	sweeper   *Sweeper
	redisAddr string
	interval  time.Duration
}

// NewAsynqScheduler builds an AsynqScheduler against redisAddr. interval
// <= 0 uses DefaultInterval.
func NewAsynqScheduler(sweeper *Sweeper, redisAddr string, interval time.Duration) *AsynqScheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &AsynqScheduler{sweeper: sweeper, redisAddr: redisAddr, interval: interval}
}

// Run starts both halves of the asynq pipeline — a Scheduler that enqueues
// TaskCleanupExpired on an interval, and a Server that executes it — and
// blocks until ctx is canceled.
func (s *AsynqScheduler) Run(ctx context.Context) error {
	opt := asynq.RedisClientOpt{Addr: s.redisAddr}

	scheduler := asynq.NewScheduler(opt, nil)
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TaskCleanupExpired, nil)); err != nil {
		return fmt.Errorf("sweep: register periodic task: %w", err)
	}
	// Start is non-blocking: it launches the scheduler's own goroutine and
	// returns immediately, leaving shutdown to the deferred calls below.
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("sweep: start scheduler: %w", err)
	}
	defer scheduler.Shutdown()

	server := asynq.NewServer(opt, asynq.Config{Concurrency: 1})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCleanupExpired, s.handleCleanupExpired)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(mux) }()

	select {
	case <-ctx.Done():
		server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *AsynqScheduler) handleCleanupExpired(_ context.Context, _ *asynq.Task) error {
	s.sweeper.Tick()
	return nil
}
