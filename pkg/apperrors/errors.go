// Package apperrors defines the error taxonomy shared by services and
// handlers. Handlers map these onto HTTP status codes; services never
// translate them.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound covers both "no such entity" and "not owned by caller".
	// The two are deliberately indistinguishable so an unauthorized caller
	// cannot confirm that another user's deal exists.
	ErrNotFound = errors.New("not found")
)

// ValidationError reports malformed or out-of-range input to a public
// operation. Nothing is persisted when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for a named input field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RuleViolationError reports a well-formed request that a business rule
// refused: an invalid lifecycle transition, missing target-state payload,
// or a disabled policy. Distinct from validation because the request itself
// was fine; only the decision was "no".
type RuleViolationError struct {
	Code    string
	Message string
}

func (e *RuleViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewRuleViolation builds a RuleViolationError with a stable machine code.
func NewRuleViolation(code, message string) *RuleViolationError {
	return &RuleViolationError{Code: code, Message: message}
}

// Rule violation codes used by the lifecycle state machine and the
// compliance gate.
const (
	CodeInvalidTransition     = "invalid_transition"
	CodeMissingTransitionData = "missing_transition_data"
	CodeNoConsent             = "no_consent"
)

// DNCBlockedError is returned when a contact attempt targets a number on
// the do-not-call list. Uniquely, the attempt leaves no persistent record:
// the contact never happened.
type DNCBlockedError struct {
	PhoneHash string
}

func (e *DNCBlockedError) Error() string {
	return "contact blocked: number is on the do-not-call list"
}

// ComplianceViolationError is returned when a contact attempt was made
// without usable consent. Unlike every other failure, the attempt IS
// persisted before this error is returned; ContactLogID references the
// audit row that records it. Callers must not treat "failed" and "not
// recorded" as synonyms here.
type ComplianceViolationError struct {
	Code         string
	ContactLogID uuid.UUID
}

func (e *ComplianceViolationError) Error() string {
	return fmt.Sprintf("contact attempted without consent (logged as %s)", e.ContactLogID)
}
