package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/database"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// SkipTraceRepository manages the owner-lookup job queue. Workers claim
// queued jobs with FOR UPDATE SKIP LOCKED so concurrent workers never
// double-process a job.
type SkipTraceRepository interface {
	Enqueue(ctx context.Context, job *models.SkipTraceJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SkipTraceJob, error)

	// ClaimNext atomically claims the oldest queued job and marks it
	// running. Returns nil when the queue is empty.
	ClaimNext(ctx context.Context) (*models.SkipTraceJob, error)

	// MarkCompleted records the lookup result. Phone fields are nil when
	// the provider found no owner phone.
	MarkCompleted(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type skipTraceRepository struct {
	db *database.DB
}

// NewSkipTraceRepository creates a new SkipTraceRepository.
func NewSkipTraceRepository(db *database.DB) SkipTraceRepository {
	return &skipTraceRepository{db: db}
}

var _ SkipTraceRepository = (*skipTraceRepository)(nil)

const skipTraceColumns = `id, property_id, status, address_line1, city, state, postal_code,
	owner_phone_encrypted, owner_phone_hash, attempts, failure_reason,
	queued_at, started_at, finished_at`

func (r *skipTraceRepository) Enqueue(ctx context.Context, job *models.SkipTraceJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = models.SkipTraceStatusQueued
	job.QueuedAt = time.Now().UTC()

	query := `
		INSERT INTO skip_trace_jobs (
			id, property_id, status, address_line1, city, state, postal_code, queued_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		job.ID, job.PropertyID, job.Status, job.AddressLine1,
		job.City, job.State, job.PostalCode, job.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue skip trace job: %w", err)
	}
	return nil
}

func (r *skipTraceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SkipTraceJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM skip_trace_jobs WHERE id = $1`, skipTraceColumns)

	job, err := scanSkipTraceJob(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skip trace job: %w", err)
	}
	return job, nil
}

func (r *skipTraceRepository) ClaimNext(ctx context.Context) (*models.SkipTraceJob, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		SELECT %s FROM skip_trace_jobs
		WHERE status = $1
		ORDER BY queued_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`, skipTraceColumns)

	job, err := scanSkipTraceJob(tx.QueryRow(ctx, query, models.SkipTraceStatusQueued))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim skip trace job: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE skip_trace_jobs SET status = $2, started_at = $3, attempts = attempts + 1 WHERE id = $1`,
		job.ID, models.SkipTraceStatusRunning, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark skip trace job running: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim transaction: %w", err)
	}

	job.Status = models.SkipTraceStatusRunning
	job.StartedAt = &now
	job.Attempts++
	return job, nil
}

func (r *skipTraceRepository) MarkCompleted(ctx context.Context, id uuid.UUID, phoneEncrypted, phoneHash *string) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE skip_trace_jobs
		SET status = $2, owner_phone_encrypted = $3, owner_phone_hash = $4, finished_at = $5
		WHERE id = $1`,
		id, models.SkipTraceStatusCompleted, phoneEncrypted, phoneHash, now,
	)
	if err != nil {
		return fmt.Errorf("failed to complete skip trace job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *skipTraceRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx, `
		UPDATE skip_trace_jobs
		SET status = $2, failure_reason = $3, finished_at = $4
		WHERE id = $1`,
		id, models.SkipTraceStatusFailed, reason, now,
	)
	if err != nil {
		return fmt.Errorf("failed to fail skip trace job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanSkipTraceJob(row pgx.Row) (*models.SkipTraceJob, error) {
	var job models.SkipTraceJob
	err := row.Scan(
		&job.ID, &job.PropertyID, &job.Status, &job.AddressLine1,
		&job.City, &job.State, &job.PostalCode,
		&job.OwnerPhoneEncrypted, &job.OwnerPhoneHash, &job.Attempts,
		&job.FailureReason, &job.QueuedAt, &job.StartedAt, &job.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	job.PhoneFound = job.OwnerPhoneHash != nil
	return &job, nil
}
