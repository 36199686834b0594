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

// DealRepository provides data access for deals and their append-only
// history. Status writes only happen inside a caller-owned transaction,
// through UpdateStatus, after the row was locked with GetOwnedForUpdate -
// the lifecycle service is the sole caller.
type DealRepository interface {
	// Create inserts a deal in status NEW.
	Create(ctx context.Context, deal *models.Deal) error

	// GetOwned returns the deal only when it belongs to userID;
	// otherwise apperrors.ErrNotFound, even if the deal exists.
	GetOwned(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error)

	// GetOwnedForUpdate is GetOwned with a row lock, for use inside a
	// transaction. Concurrent transitions on the same deal serialize on
	// this lock; different deals never contend.
	GetOwnedForUpdate(ctx context.Context, tx Querier, dealID, userID uuid.UUID) (*models.Deal, error)

	// UpdateStatus writes the new status (and score when non-nil) inside
	// the caller's transaction.
	UpdateStatus(ctx context.Context, tx Querier, dealID uuid.UUID, status models.DealStatus, score *int) error

	// InsertHistory appends one history row inside the caller's
	// transaction. History rows are never updated or deleted.
	InsertHistory(ctx context.Context, tx Querier, history *models.DealHistory) error

	// InsertEvaluationLogs appends one log row per evaluated rule inside
	// the caller's transaction.
	InsertEvaluationLogs(ctx context.Context, tx Querier, logs []*models.RuleEvaluationLog) error

	// ListByUser returns the user's deals, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error)

	// ListHistory returns a deal's history, oldest first, scoped by owner.
	ListHistory(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error)
}

type dealRepository struct {
	db *database.DB
}

// NewDealRepository creates a new DealRepository.
func NewDealRepository(db *database.DB) DealRepository {
	return &dealRepository{db: db}
}

var _ DealRepository = (*dealRepository)(nil)

const dealColumns = `id, user_id, property_id, status, qualification_score, created_at, updated_at`

func (r *dealRepository) Create(ctx context.Context, deal *models.Deal) error {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.Status == "" {
		deal.Status = models.DealStatusNew
	}
	now := time.Now().UTC()
	deal.CreatedAt = now
	deal.UpdatedAt = now

	query := `
		INSERT INTO deals (id, user_id, property_id, status, qualification_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		deal.ID, deal.UserID, deal.PropertyID, deal.Status,
		deal.QualificationScore, deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (r *dealRepository) GetOwned(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 AND user_id = $2`
	return scanDeal(r.db.QueryRow(ctx, query, dealID, userID))
}

func (r *dealRepository) GetOwnedForUpdate(ctx context.Context, tx Querier, dealID, userID uuid.UUID) (*models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE id = $1 AND user_id = $2 FOR UPDATE`
	return scanDeal(tx.QueryRow(ctx, query, dealID, userID))
}

func scanDeal(row pgx.Row) (*models.Deal, error) {
	var d models.Deal
	err := row.Scan(&d.ID, &d.UserID, &d.PropertyID, &d.Status,
		&d.QualificationScore, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan deal: %w", err)
	}
	return &d, nil
}

func (r *dealRepository) UpdateStatus(ctx context.Context, tx Querier, dealID uuid.UUID, status models.DealStatus, score *int) error {
	var err error
	if score != nil {
		_, err = tx.Exec(ctx,
			`UPDATE deals SET status = $2, qualification_score = $3, updated_at = now() WHERE id = $1`,
			dealID, status, *score)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE deals SET status = $2, updated_at = now() WHERE id = $1`,
			dealID, status)
	}
	if err != nil {
		return fmt.Errorf("failed to update deal status: %w", err)
	}
	return nil
}

func (r *dealRepository) InsertHistory(ctx context.Context, tx Querier, history *models.DealHistory) error {
	if history.ID == uuid.Nil {
		history.ID = uuid.New()
	}
	if history.FieldChanged == "" {
		history.FieldChanged = "status"
	}
	history.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO deal_history (id, deal_id, field_changed, old_value, new_value, notes, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		history.ID, history.DealID, history.FieldChanged,
		history.OldValue, history.NewValue, history.Notes,
		history.ChangedBy, history.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deal history: %w", err)
	}
	return nil
}

func (r *dealRepository) InsertEvaluationLogs(ctx context.Context, tx Querier, logs []*models.RuleEvaluationLog) error {
	for _, log := range logs {
		if log.ID == uuid.Nil {
			log.ID = uuid.New()
		}
		log.CreatedAt = time.Now().UTC()

		_, err := tx.Exec(ctx,
			`INSERT INTO rule_evaluation_logs (id, deal_id, rule_id, result, scored, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			log.ID, log.DealID, log.RuleID, log.Result, log.Scored, log.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert rule evaluation log: %w", err)
		}
	}
	return nil
}

func (r *dealRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
	query := `SELECT ` + dealColumns + `
		FROM deals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []*models.Deal
	for rows.Next() {
		var d models.Deal
		if err := rows.Scan(&d.ID, &d.UserID, &d.PropertyID, &d.Status,
			&d.QualificationScore, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}
	return deals, nil
}

func (r *dealRepository) ListHistory(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error) {
	// Scope through the deal's owner so history of foreign deals reads
	// as not-found-empty, consistent with GetOwned.
	query := `
		SELECT h.id, h.deal_id, h.field_changed, h.old_value, h.new_value, h.notes, h.changed_by, h.created_at
		FROM deal_history h
		JOIN deals d ON d.id = h.deal_id
		WHERE h.deal_id = $1 AND d.user_id = $2
		ORDER BY h.created_at ASC`

	rows, err := r.db.Query(ctx, query, dealID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal history: %w", err)
	}
	defer rows.Close()

	var entries []*models.DealHistory
	for rows.Next() {
		var h models.DealHistory
		if err := rows.Scan(&h.ID, &h.DealID, &h.FieldChanged, &h.OldValue,
			&h.NewValue, &h.Notes, &h.ChangedBy, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deal history: %w", err)
		}
		entries = append(entries, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deal history: %w", err)
	}
	return entries, nil
}
