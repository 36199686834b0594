// Package services holds the engine's business logic: the deal lifecycle
// state machine, the consent and do-not-call gate, and the skip-trace
// queue facade. Services own transaction boundaries; repositories only
// ever see a Querier.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/config"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
	"github.com/dealbase-inc/dealbase-engine/pkg/scoring"
)

// DB is the database handle services depend on: plain query execution
// plus the ability to open a transaction. *database.DB satisfies it.
type DB interface {
	repositories.Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EvaluationOutcome is the result of evaluating a deal: the pure
// evaluation plus the deal row as persisted afterwards.
type EvaluationOutcome struct {
	Deal       *models.Deal        `json:"deal"`
	Evaluation *scoring.Evaluation `json:"evaluation"`
}

// DealService drives the deal lifecycle. All status writes in the system
// go through Transition or EvaluateAndApply; both lock the deal row so
// concurrent changes to the same deal serialize and the loser re-validates
// against the state the winner left behind.
type DealService interface {
	Create(ctx context.Context, userID, propertyID uuid.UUID) (*models.Deal, error)
	Get(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error)
	History(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error)

	// Transition moves a deal along one lifecycle edge. Rejections are
	// typed: unknown target status is a ValidationError, a missing or
	// foreign deal is ErrNotFound, an edge the graph does not have is a
	// RuleViolationError, and so is a CLOSED transition without a closed
	// date. Exactly one history row records an accepted transition.
	Transition(ctx context.Context, dealID, userID uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error)

	// EvaluateAndApply runs the user's rule set against the deal's
	// property snapshot and persists the outcome: score, recommended
	// status where the lifecycle graph permits it, history rows for each
	// applied status change, and one evaluation log row per rule.
	EvaluateAndApply(ctx context.Context, dealID, userID uuid.UUID) (*EvaluationOutcome, error)
}

type dealService struct {
	db         DB
	deals      repositories.DealRepository
	properties repositories.PropertyRepository
	rules      repositories.RuleRepository
	policy     *config.QualificationPolicy
	logger     *zap.Logger
}

// NewDealService creates a new DealService.
func NewDealService(
	db DB,
	deals repositories.DealRepository,
	properties repositories.PropertyRepository,
	rules repositories.RuleRepository,
	policy *config.QualificationPolicy,
	logger *zap.Logger,
) DealService {
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	return &dealService{
		db:         db,
		deals:      deals,
		properties: properties,
		rules:      rules,
		policy:     policy,
		logger:     logger.Named("deal-service"),
	}
}

var _ DealService = (*dealService)(nil)

func (s *dealService) Create(ctx context.Context, userID, propertyID uuid.UUID) (*models.Deal, error) {
	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return nil, err
	}

	deal := &models.Deal{
		UserID:     userID,
		PropertyID: propertyID,
		Status:     models.DealStatusNew,
	}
	if err := s.deals.Create(ctx, deal); err != nil {
		return nil, err
	}

	s.logger.Info("deal created",
		zap.String("deal_id", deal.ID.String()),
		zap.String("property_id", propertyID.String()))
	return deal, nil
}

func (s *dealService) Get(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error) {
	return s.deals.GetOwned(ctx, dealID, userID)
}

func (s *dealService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.deals.ListByUser(ctx, userID, limit, offset)
}

func (s *dealService) History(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error) {
	if _, err := s.deals.GetOwned(ctx, dealID, userID); err != nil {
		return nil, err
	}
	return s.deals.ListHistory(ctx, dealID, userID)
}

func (s *dealService) Transition(ctx context.Context, dealID, userID uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error) {
	if !models.IsValidDealStatus(target) {
		return nil, apperrors.NewValidation("target_status", fmt.Sprintf("unknown status %q", target))
	}
	if err := validateTransitionData(target, data); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deal, err := s.deals.GetOwnedForUpdate(ctx, tx, dealID, userID)
	if err != nil {
		return nil, err
	}

	if !s.edgeAllowed(deal.Status, target) {
		return nil, apperrors.NewRuleViolation(apperrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", deal.Status, target))
	}

	if err := s.deals.UpdateStatus(ctx, tx, deal.ID, target, nil); err != nil {
		return nil, err
	}

	history := &models.DealHistory{
		DealID:    deal.ID,
		OldValue:  string(deal.Status),
		NewValue:  string(target),
		Notes:     transitionNotes(target, data, notes),
		ChangedBy: userID,
	}
	if err := s.deals.InsertHistory(ctx, tx, history); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	s.logger.Info("deal transitioned",
		zap.String("deal_id", deal.ID.String()),
		zap.String("from", string(deal.Status)),
		zap.String("to", string(target)))

	deal.Status = target
	return deal, nil
}

// validateTransitionData enforces target-state payload requirements before
// any lock is taken.
func validateTransitionData(target models.DealStatus, data *models.TransitionData) error {
	if target == models.DealStatusClosed {
		if data == nil || data.ClosedDate == nil {
			return apperrors.NewRuleViolation(apperrors.CodeMissingTransitionData,
				"closed_date is required to close a deal")
		}
	}
	return nil
}

// transitionNotes folds the target-specific payload into the history note.
func transitionNotes(target models.DealStatus, data *models.TransitionData, notes string) string {
	if data == nil {
		return notes
	}
	switch target {
	case models.DealStatusRejected:
		if data.RejectionReason != "" {
			if notes == "" {
				return data.RejectionReason
			}
			return notes + "; " + data.RejectionReason
		}
	case models.DealStatusClosed:
		if data.EstimatedProfit != nil {
			profit := fmt.Sprintf("estimated profit %.2f", *data.EstimatedProfit)
			if notes == "" {
				return profit
			}
			return notes + "; " + profit
		}
	}
	return notes
}

// edgeAllowed consults the built-in graph first, then deployment policy.
// Policy can only add edges from non-terminal states; REJECTED and CLOSED
// never gain a way out.
func (s *dealService) edgeAllowed(from, to models.DealStatus) bool {
	if from.CanTransitionTo(to) {
		return true
	}
	if from.IsTerminal() {
		return false
	}
	for _, extra := range s.policy.ExtraTransitions[string(from)] {
		if models.DealStatus(extra) == to {
			return true
		}
	}
	return false
}

func (s *dealService) EvaluateAndApply(ctx context.Context, dealID, userID uuid.UUID) (*EvaluationOutcome, error) {
	rules, err := s.rules.ListEnabledByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	deal, err := s.deals.GetOwnedForUpdate(ctx, tx, dealID, userID)
	if err != nil {
		return nil, err
	}
	property, err := s.properties.GetByID(ctx, deal.PropertyID)
	if err != nil {
		return nil, err
	}

	evaluation, err := scoring.Evaluate(property, rules, s.policy)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	// Apply the recommended status along real graph edges. A NEW deal
	// passes through ANALYZING first; a deal that has moved past analysis
	// keeps its status and only the score is refreshed.
	status := deal.Status
	for _, step := range statusPath(deal.Status, evaluation.Status) {
		if err := s.deals.InsertHistory(ctx, tx, &models.DealHistory{
			DealID:    deal.ID,
			OldValue:  string(status),
			NewValue:  string(step),
			Notes:     "rule evaluation",
			ChangedBy: userID,
		}); err != nil {
			return nil, err
		}
		status = step
	}

	score := evaluation.Score
	if err := s.deals.UpdateStatus(ctx, tx, deal.ID, status, &score); err != nil {
		return nil, err
	}

	logs := make([]*models.RuleEvaluationLog, 0, len(evaluation.Breakdown))
	for _, rr := range evaluation.Breakdown {
		logs = append(logs, &models.RuleEvaluationLog{
			DealID: deal.ID,
			RuleID: rr.RuleID,
			Result: rr.Result,
			Scored: rr.Scored,
		})
	}
	if err := s.deals.InsertEvaluationLogs(ctx, tx, logs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit evaluation: %w", err)
	}

	s.logger.Info("deal evaluated",
		zap.String("deal_id", deal.ID.String()),
		zap.Int("score", evaluation.Score),
		zap.String("status", string(status)))

	deal.Status = status
	deal.QualificationScore = evaluation.Score
	return &EvaluationOutcome{Deal: deal, Evaluation: evaluation}, nil
}

// statusPath returns the graph edges to walk from current to the
// evaluation's recommendation: NEW deals pass through ANALYZING, deals
// already in ANALYZING move directly, anything further along yields no
// steps.
func statusPath(current, recommended models.DealStatus) []models.DealStatus {
	if current == recommended {
		return nil
	}
	if current == models.DealStatusNew {
		if recommended == models.DealStatusAnalyzing {
			return []models.DealStatus{models.DealStatusAnalyzing}
		}
		return []models.DealStatus{models.DealStatusAnalyzing, recommended}
	}
	if current.CanTransitionTo(recommended) {
		return []models.DealStatus{recommended}
	}
	return nil
}
