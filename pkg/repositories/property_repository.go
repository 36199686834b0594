package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/database"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
)

// PropertyRepository provides read access to imported properties. The
// import pipeline owns writes; Create exists for seeding and tests.
type PropertyRepository interface {
	// Create inserts a property record.
	Create(ctx context.Context, property *models.Property) error

	// GetByID returns one property or apperrors.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

type propertyRepository struct {
	db *database.DB
}

// NewPropertyRepository creates a new PropertyRepository.
func NewPropertyRepository(db *database.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

var _ PropertyRepository = (*propertyRepository)(nil)

func (r *propertyRepository) Create(ctx context.Context, property *models.Property) error {
	if property.ID == uuid.Nil {
		property.ID = uuid.New()
	}
	now := time.Now().UTC()
	property.CreatedAt = now
	property.UpdatedAt = now

	signalsJSON, err := json.Marshal(orEmptyMap(property.DistressSignals))
	if err != nil {
		return fmt.Errorf("failed to marshal distress_signals: %w", err)
	}
	rawJSON, err := json.Marshal(orEmptyMap(property.RawData))
	if err != nil {
		return fmt.Errorf("failed to marshal raw_data: %w", err)
	}

	query := `
		INSERT INTO properties (
			id, address_line1, city, state, postal_code,
			estimated_value, last_sale_price, tax_assessed_value, equity_percent,
			distress_signals, data_freshness_date, raw_data, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.db.Exec(ctx, query,
		property.ID,
		property.AddressLine1,
		property.City,
		property.State,
		property.PostalCode,
		property.EstimatedValue,
		property.LastSalePrice,
		property.TaxAssessedValue,
		property.EquityPercent,
		signalsJSON,
		property.DataFreshnessDate,
		rawJSON,
		property.CreatedAt,
		property.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	query := `
		SELECT id, address_line1, city, state, postal_code,
		       estimated_value, last_sale_price, tax_assessed_value, equity_percent,
		       distress_signals, data_freshness_date, raw_data, created_at, updated_at
		FROM properties
		WHERE id = $1`

	var (
		p           models.Property
		signalsJSON []byte
		rawJSON     []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.AddressLine1, &p.City, &p.State, &p.PostalCode,
		&p.EstimatedValue, &p.LastSalePrice, &p.TaxAssessedValue, &p.EquityPercent,
		&signalsJSON, &p.DataFreshnessDate, &rawJSON, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	if err := json.Unmarshal(signalsJSON, &p.DistressSignals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal distress_signals: %w", err)
	}
	if err := json.Unmarshal(rawJSON, &p.RawData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal raw_data: %w", err)
	}

	return &p, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
