package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealbase-inc/dealbase-engine/pkg/database"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// DNCRepository persists do-not-call entries keyed by phone hash. The
// phone_hash column is unique, so re-registering an opt-out updates the
// existing row.
type DNCRepository interface {
	// FindActiveByHash returns the entry for the hash if it is active at
	// the given instant, or nil when the phone is callable.
	FindActiveByHash(ctx context.Context, phoneHash string, at time.Time) (*models.DoNotCallEntry, error)

	// Upsert inserts or refreshes the entry for its phone hash inside the
	// caller's transaction. A nil expiry means permanent and is never
	// overwritten by a dated one.
	Upsert(ctx context.Context, q Querier, entry *models.DoNotCallEntry) error
}

type dncRepository struct {
	db *database.DB
}

// NewDNCRepository creates a new DNCRepository.
func NewDNCRepository(db *database.DB) DNCRepository {
	return &dncRepository{db: db}
}

var _ DNCRepository = (*dncRepository)(nil)

func (r *dncRepository) FindActiveByHash(ctx context.Context, phoneHash string, at time.Time) (*models.DoNotCallEntry, error) {
	query := `
		SELECT id, phone_hash, source, expiry_date, created_at, updated_at
		FROM do_not_call_entries
		WHERE phone_hash = $1
		  AND (expiry_date IS NULL OR expiry_date > $2)`

	var entry models.DoNotCallEntry
	err := r.db.QueryRow(ctx, query, phoneHash, at).Scan(
		&entry.ID, &entry.PhoneHash, &entry.Source,
		&entry.ExpiryDate, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query do-not-call entry: %w", err)
	}
	return &entry, nil
}

func (r *dncRepository) Upsert(ctx context.Context, q Querier, entry *models.DoNotCallEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	// A NULL expiry marks a permanent entry. The CASE keeps permanence
	// sticky when an opt-out is recorded again with a dated expiry.
	query := `
		INSERT INTO do_not_call_entries (id, phone_hash, source, expiry_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone_hash) DO UPDATE SET
			source = EXCLUDED.source,
			expiry_date = CASE
				WHEN do_not_call_entries.expiry_date IS NULL THEN NULL
				ELSE EXCLUDED.expiry_date
			END,
			updated_at = EXCLUDED.updated_at`

	_, err := q.Exec(ctx, query,
		entry.ID, entry.PhoneHash, entry.Source,
		entry.ExpiryDate, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert do-not-call entry: %w", err)
	}
	return nil
}
