package jobs

import (
	"context"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"go.uber.org/zap"
)

// MirrorJobName is the name of the legacy mirror replication job
const MirrorJobName = "legacy_mirror"

// Replayer drains the maintenance outbox into the legacy mirror
type Replayer interface {
	Replay(ctx context.Context) (service.ReplayResult, error)
}

// MirrorJob runs one replication pass per tick
type MirrorJob struct {
	replayer Replayer
	logger   *zap.Logger
	timeout  time.Duration
}

// NewMirrorJob creates a mirror job. timeout bounds a single run.
func NewMirrorJob(replayer Replayer, logger *zap.Logger, timeout time.Duration) *MirrorJob {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &MirrorJob{replayer: replayer, logger: logger, timeout: timeout}
}

// Run executes one replication pass
func (j *MirrorJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	result, err := j.replayer.Replay(ctx)
	if err != nil {
		j.logger.Error("legacy mirror replication failed",
			zap.Error(err),
			zap.Int("replicated", result.Replicated),
			zap.Duration("duration", time.Since(start)))
		return
	}

	if result.Replicated > 0 || result.Skipped > 0 || result.Failed > 0 {
		j.logger.Info("legacy mirror replication completed",
			zap.Int("replicated", result.Replicated),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", time.Since(start)))
	}
}

// RegisterMirrorJob registers the replication job and, when runAtStartup is
// set, drains the backlog once in the background without blocking startup
func RegisterMirrorJob(scheduler *Scheduler, replayer Replayer, logger *zap.Logger, cronExpr string, timeout time.Duration, runAtStartup bool) error {
	job := NewMirrorJob(replayer, logger, timeout)
	if runAtStartup {
		go job.Run()
	}
	return scheduler.AddJob(MirrorJobName, cronExpr, job.Run)
}
