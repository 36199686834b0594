package skiptrace

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/crypto"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
)

// pollInterval is how long the runner sleeps when the queue is empty.
const pollInterval = 5 * time.Second

// Runner drains the skip-trace queue: claim, look up, record. Multiple
// runners can share a queue; the SKIP LOCKED claim keeps them from ever
// processing the same job twice.
type Runner struct {
	jobs      repositories.SkipTraceRepository
	provider  Provider
	protector *crypto.PhoneProtector
	logger    *zap.Logger
}

// NewRunner creates a Runner.
func NewRunner(jobs repositories.SkipTraceRepository, provider Provider, protector *crypto.PhoneProtector, logger *zap.Logger) *Runner {
	return &Runner{
		jobs:      jobs,
		provider:  provider,
		protector: protector,
		logger:    logger.Named("skip-trace-runner"),
	}
}

// Run processes jobs until the context is cancelled. Empty-queue polls
// back off to pollInterval; a claimed job is processed immediately so a
// burst drains at full speed.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("skip trace runner started")
	for {
		processed, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("queue claim failed", zap.Error(err))
		}
		if processed {
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("skip trace runner stopped")
			return
		case <-time.After(pollInterval):
		}
	}
}

// RunOnce claims and processes at most one job. Returns false when the
// queue was empty.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	job, err := r.jobs.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	r.process(ctx, job)
	return true, nil
}

func (r *Runner) process(ctx context.Context, job *models.SkipTraceJob) {
	result, err := r.provider.Lookup(ctx, job)
	if err != nil {
		r.logger.Warn("skip trace lookup failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		if markErr := r.jobs.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			r.logger.Error("failed to record job failure",
				zap.String("job_id", job.ID.String()),
				zap.Error(markErr))
		}
		return
	}

	var encrypted, hashed *string
	if result.Found && crypto.NormalizePhone(result.Phone) != "" {
		enc, err := r.protector.Encrypt(result.Phone)
		if err != nil {
			r.logger.Error("failed to encrypt discovered phone",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
			if markErr := r.jobs.MarkFailed(ctx, job.ID, "failed to protect discovered phone"); markErr != nil {
				r.logger.Error("failed to record job failure",
					zap.String("job_id", job.ID.String()),
					zap.Error(markErr))
			}
			return
		}
		hash := r.protector.Hash(result.Phone)
		encrypted, hashed = &enc, &hash
	}

	if err := r.jobs.MarkCompleted(ctx, job.ID, encrypted, hashed); err != nil {
		r.logger.Error("failed to record job completion",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		return
	}

	r.logger.Info("skip trace job completed",
		zap.String("job_id", job.ID.String()),
		zap.Bool("phone_found", hashed != nil))
}
