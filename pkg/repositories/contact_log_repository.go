package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealbase-inc/dealbase-engine/pkg/database"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// ContactLogFilters narrows the audit read path. Zero values mean "no
// filter".
type ContactLogFilters struct {
	From          *time.Time
	To            *time.Time
	Method        models.ContactMethod
	ConsentStatus models.ConsentStatus
	Limit         int
	Offset        int
}

// ContactLogRepository persists contact attempt records. Rows are written
// exactly once and never updated; the encrypted phone column is read back
// into the model but excluded from every JSON response shape.
type ContactLogRepository interface {
	// Insert writes one contact log row using the given querier, so the
	// compliance gate can make the write part of its own atomic unit.
	Insert(ctx context.Context, q Querier, log *models.ContactLog) error

	// ListByUser returns the user's contact logs, newest first, with the
	// total count for pagination.
	ListByUser(ctx context.Context, userID uuid.UUID, filters ContactLogFilters) ([]*models.ContactLog, int, error)
}

type contactLogRepository struct {
	db *database.DB
}

// NewContactLogRepository creates a new ContactLogRepository.
func NewContactLogRepository(db *database.DB) ContactLogRepository {
	return &contactLogRepository{db: db}
}

var _ ContactLogRepository = (*contactLogRepository)(nil)

func (r *contactLogRepository) Insert(ctx context.Context, q Querier, log *models.ContactLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.AttemptedAt.IsZero() {
		log.AttemptedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(orEmptyMap(log.ConsentMetadata))
	if err != nil {
		return fmt.Errorf("failed to marshal consent_metadata: %w", err)
	}

	query := `
		INSERT INTO contact_logs (
			id, property_id, user_id, contact_method, consent_status,
			consent_metadata, phone_encrypted, phone_hash, violation, attempted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = q.Exec(ctx, query,
		log.ID, log.PropertyID, log.UserID, log.Method, log.ConsentStatus,
		metadataJSON, log.PhoneEncrypted, log.PhoneHash, log.Violation, log.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact log: %w", err)
	}
	return nil
}

func (r *contactLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, filters ContactLogFilters) ([]*models.ContactLog, int, error) {
	where := "WHERE user_id = $1"
	args := []any{userID}

	if filters.From != nil {
		args = append(args, *filters.From)
		where += fmt.Sprintf(" AND attempted_at >= $%d", len(args))
	}
	if filters.To != nil {
		args = append(args, *filters.To)
		where += fmt.Sprintf(" AND attempted_at <= $%d", len(args))
	}
	if filters.Method != "" {
		args = append(args, filters.Method)
		where += fmt.Sprintf(" AND contact_method = $%d", len(args))
	}
	if filters.ConsentStatus != "" {
		args = append(args, filters.ConsentStatus)
		where += fmt.Sprintf(" AND consent_status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM contact_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contact logs: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, filters.Offset)
	query := fmt.Sprintf(`
		SELECT id, property_id, user_id, contact_method, consent_status,
		       consent_metadata, phone_encrypted, phone_hash, violation, attempted_at
		FROM contact_logs
		%s
		ORDER BY attempted_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query contact logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ContactLog
	for rows.Next() {
		var (
			log          models.ContactLog
			metadataJSON []byte
		)
		if err := rows.Scan(&log.ID, &log.PropertyID, &log.UserID, &log.Method,
			&log.ConsentStatus, &metadataJSON, &log.PhoneEncrypted, &log.PhoneHash,
			&log.Violation, &log.AttemptedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan contact log: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &log.ConsentMetadata); err != nil {
			return nil, 0, fmt.Errorf("failed to unmarshal consent_metadata: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating contact logs: %w", err)
	}
	return logs, total, nil
}
