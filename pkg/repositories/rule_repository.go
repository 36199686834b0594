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

// RuleRepository provides data access for qualification rules.
type RuleRepository interface {
	// Create validates and inserts a rule. Value/operator consistency is
	// enforced here, at creation time, so the evaluator never sees a
	// type mismatch.
	Create(ctx context.Context, rule *models.QualificationRule) error

	// ListEnabledByUser returns the user's enabled rules in evaluation
	// order: rule_type ASC (filters before score components), then
	// created_at ASC.
	ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]*models.QualificationRule, error)
}

type ruleRepository struct {
	db *database.DB
}

// NewRuleRepository creates a new RuleRepository.
func NewRuleRepository(db *database.DB) RuleRepository {
	return &ruleRepository{db: db}
}

var _ RuleRepository = (*ruleRepository)(nil)

func (r *ruleRepository) Create(ctx context.Context, rule *models.QualificationRule) error {
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("invalid rule: %w", err)
	}

	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	valueJSON, err := json.Marshal(rule.Value)
	if err != nil {
		return fmt.Errorf("failed to marshal rule value: %w", err)
	}

	query := `
		INSERT INTO qualification_rules (
			id, user_id, rule_type, field_name, operator, value, weight, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		rule.ID, rule.UserID, rule.RuleType, rule.FieldName, rule.Operator,
		valueJSON, rule.Weight, rule.Enabled, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

func (r *ruleRepository) ListEnabledByUser(ctx context.Context, userID uuid.UUID) ([]*models.QualificationRule, error) {
	query := `
		SELECT id, user_id, rule_type, field_name, operator, value, weight, enabled, created_at, updated_at
		FROM qualification_rules
		WHERE user_id = $1 AND enabled
		ORDER BY rule_type ASC, created_at ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.QualificationRule
	for rows.Next() {
		var (
			rule      models.QualificationRule
			valueJSON []byte
		)
		if err := rows.Scan(
			&rule.ID, &rule.UserID, &rule.RuleType, &rule.FieldName, &rule.Operator,
			&valueJSON, &rule.Weight, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		if err := json.Unmarshal(valueJSON, &rule.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule value: %w", err)
		}
		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}
