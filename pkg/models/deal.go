package models

import (
	"time"

	"github.com/google/uuid"
)

// DealStatus is the lifecycle state of a deal.
//
// State machine:
//
//	NEW → ANALYZING → {QUALIFIED, REJECTED}
//	QUALIFIED → OFFERED → NEGOTIATING → UNDER_CONTRACT → CLOSED
//	NEGOTIATING → OFFERED (re-offer after a counter)
//
// Any non-terminal state except NEW can move to REJECTED (deal died).
// REJECTED and CLOSED are terminal: no outbound edges, ever.
type DealStatus string

const (
	DealStatusNew           DealStatus = "NEW"
	DealStatusAnalyzing     DealStatus = "ANALYZING"
	DealStatusQualified     DealStatus = "QUALIFIED"
	DealStatusRejected      DealStatus = "REJECTED"
	DealStatusOffered       DealStatus = "OFFERED"
	DealStatusNegotiating   DealStatus = "NEGOTIATING"
	DealStatusUnderContract DealStatus = "UNDER_CONTRACT"
	DealStatusClosed        DealStatus = "CLOSED"
)

// ValidDealStatuses contains all valid status values.
var ValidDealStatuses = []DealStatus{
	DealStatusNew,
	DealStatusAnalyzing,
	DealStatusQualified,
	DealStatusRejected,
	DealStatusOffered,
	DealStatusNegotiating,
	DealStatusUnderContract,
	DealStatusClosed,
}

// IsValidDealStatus checks if the given status is valid.
func IsValidDealStatus(s DealStatus) bool {
	for _, v := range ValidDealStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// DealTransitions is the adjacency table of the lifecycle graph. Held as
// data rather than branches so the graph is reviewable and testable on
// its own. Deployments may add edges via policy config but can never add
// outbound edges to a terminal state.
var DealTransitions = map[DealStatus][]DealStatus{
	DealStatusNew:           {DealStatusAnalyzing},
	DealStatusAnalyzing:     {DealStatusQualified, DealStatusRejected},
	DealStatusQualified:     {DealStatusOffered, DealStatusRejected},
	DealStatusOffered:       {DealStatusNegotiating, DealStatusRejected},
	DealStatusNegotiating:   {DealStatusOffered, DealStatusUnderContract, DealStatusRejected},
	DealStatusUnderContract: {DealStatusClosed, DealStatusRejected},
	DealStatusRejected:      {},
	DealStatusClosed:        {},
}

// IsTerminal returns true if the status has no outbound edges.
func (s DealStatus) IsTerminal() bool {
	return s == DealStatusRejected || s == DealStatusClosed
}

// CanTransitionTo returns true if the built-in graph has an edge from this
// status to the target.
func (s DealStatus) CanTransitionTo(target DealStatus) bool {
	for _, next := range DealTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Deal is the central aggregate: one prospect property being worked by
// one user. Status is only ever changed through the lifecycle state
// machine; no code path writes the field directly.
type Deal struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	PropertyID uuid.UUID  `json:"property_id"`
	Status     DealStatus `json:"status"`

	// QualificationScore is the sum of awarded SCORE_COMPONENT weights
	// from the most recent evaluation. Set only by evaluation.
	QualificationScore int `json:"qualification_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransitionData carries target-state-specific payload for a transition.
type TransitionData struct {
	// ClosedDate is required when transitioning into CLOSED.
	ClosedDate *time.Time `json:"closed_date,omitempty"`
	// EstimatedProfit should accompany a CLOSED transition.
	EstimatedProfit *float64 `json:"estimated_profit,omitempty"`
	// RejectionReason may accompany a REJECTED transition.
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// DealHistory is an append-only record of one accepted status change.
// Rows are never updated or deleted.
type DealHistory struct {
	ID           uuid.UUID `json:"id"`
	DealID       uuid.UUID `json:"deal_id"`
	FieldChanged string    `json:"field_changed"` // always "status"
	OldValue     string    `json:"old_value"`
	NewValue     string    `json:"new_value"`
	Notes        string    `json:"notes,omitempty"`
	ChangedBy    uuid.UUID `json:"changed_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// RuleEvaluationLog records one rule's outcome in one evaluation run,
// answering "why was this score N" after the fact.
type RuleEvaluationLog struct {
	ID     uuid.UUID `json:"id"`
	DealID uuid.UUID `json:"deal_id"`
	RuleID uuid.UUID `json:"rule_id"`
	// Result is the rule's boolean outcome. Nil means the rule could not
	// be evaluated against the snapshot (missing field).
	Result *bool `json:"result"`
	// Scored is the points actually awarded: 0 for filters, for failing
	// components, and for every component when a filter already rejected
	// the deal.
	Scored    int       `json:"scored"`
	CreatedAt time.Time `json:"created_at"`
}
