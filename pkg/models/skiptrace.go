package models

import (
	"time"

	"github.com/google/uuid"
)

// SkipTraceStatus is the lifecycle of an asynchronous owner-phone lookup.
type SkipTraceStatus string

const (
	SkipTraceStatusQueued    SkipTraceStatus = "queued"
	SkipTraceStatusRunning   SkipTraceStatus = "running"
	SkipTraceStatusCompleted SkipTraceStatus = "completed"
	SkipTraceStatusFailed    SkipTraceStatus = "failed"
)

// SkipTraceJob is a queued owner-phone discovery lookup. The engine only
// enqueues jobs and reads their status; a runner (in-process or a
// dedicated deployment) claims and executes them.
type SkipTraceJob struct {
	ID         uuid.UUID       `json:"id"`
	PropertyID uuid.UUID       `json:"property_id"`
	Status     SkipTraceStatus `json:"status"`

	// Address payload handed to the provider.
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`

	// Discovered phone, stored in the same two forms as everywhere else.
	// Never exposed through job-status reads.
	OwnerPhoneEncrypted *string `json:"-"`
	OwnerPhoneHash      *string `json:"-"`

	// PhoneFound tells the caller whether the lookup produced a number
	// without revealing it.
	PhoneFound bool `json:"phone_found"`

	Attempts      int        `json:"attempts"`
	FailureReason *string    `json:"failure_reason,omitempty"`
	QueuedAt      time.Time  `json:"queued_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
