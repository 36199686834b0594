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

// ConsentRepository persists captured consent events. Rows carry a hard
// retention floor (must_retain_until) and are revoked, never deleted.
type ConsentRepository interface {
	// Insert writes one consent record.
	Insert(ctx context.Context, record *models.ConsentRecord) error

	// RevokeActiveByHash stamps revocation on every active record for the
	// hash inside the caller's transaction and returns the number of rows
	// revoked.
	RevokeActiveByHash(ctx context.Context, q Querier, phoneHash, method string, at time.Time) (int, error)
}

type consentRepository struct {
	db *database.DB
}

// NewConsentRepository creates a new ConsentRepository.
func NewConsentRepository(db *database.DB) ConsentRepository {
	return &consentRepository{db: db}
}

var _ ConsentRepository = (*consentRepository)(nil)

func (r *consentRepository) Insert(ctx context.Context, record *models.ConsentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now().UTC()

	disclosures := record.Disclosures
	if disclosures == nil {
		disclosures = []string{}
	}
	disclosuresJSON, err := json.Marshal(disclosures)
	if err != nil {
		return fmt.Errorf("failed to marshal disclosures: %w", err)
	}

	query := `
		INSERT INTO consent_records (
			id, phone_encrypted, phone_hash, consent_method, consent_timestamp,
			disclosures, notes, must_retain_until, compliance_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		record.ID, record.PhoneEncrypted, record.PhoneHash,
		record.ConsentMethod, record.ConsentTimestamp,
		disclosuresJSON, record.Notes, record.MustRetainUntil,
		record.ComplianceStatus, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert consent record: %w", err)
	}
	return nil
}

func (r *consentRepository) RevokeActiveByHash(ctx context.Context, q Querier, phoneHash, method string, at time.Time) (int, error) {
	tag, err := q.Exec(ctx, `
		UPDATE consent_records
		SET revocation_timestamp = $2,
		    revocation_method = $3,
		    compliance_status = $4
		WHERE phone_hash = $1 AND revocation_timestamp IS NULL`,
		phoneHash, at, method, models.ComplianceStatusRevoked,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke consent records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
