package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactMethod is the channel of an outbound contact attempt.
type ContactMethod string

const (
	ContactMethodCall       ContactMethod = "CALL"
	ContactMethodSMS        ContactMethod = "SMS"
	ContactMethodEmail      ContactMethod = "EMAIL"
	ContactMethodDirectMail ContactMethod = "DIRECT_MAIL"
)

// ValidContactMethods contains all valid contact method values.
var ValidContactMethods = []ContactMethod{
	ContactMethodCall,
	ContactMethodSMS,
	ContactMethodEmail,
	ContactMethodDirectMail,
}

// IsValidContactMethod checks if the given method is valid.
func IsValidContactMethod(m ContactMethod) bool {
	for _, v := range ValidContactMethods {
		if v == m {
			return true
		}
	}
	return false
}

// ConsentStatus is the consent standing a caller asserts for a contact
// attempt. Assertions are taken at face value by the gate; the DNC
// registry check happens independently of them.
type ConsentStatus string

const (
	ConsentStatusExpressWritten    ConsentStatus = "EXPRESS_WRITTEN_CONSENT"
	ConsentStatusPriorExpress      ConsentStatus = "PRIOR_EXPRESS_CONSENT"
	ConsentStatusNoConsentObtained ConsentStatus = "NO_CONSENT_OBTAINED"
	// ConsentStatusDoNotCall is an explicit assertion that the owner asked
	// not to be called. Gated like NO_CONSENT_OBTAINED: logged, then
	// failed. Distinct from actually being on the registry.
	ConsentStatusDoNotCall ConsentStatus = "DO_NOT_CALL"
)

// ValidConsentStatuses contains all valid consent status values.
var ValidConsentStatuses = []ConsentStatus{
	ConsentStatusExpressWritten,
	ConsentStatusPriorExpress,
	ConsentStatusNoConsentObtained,
	ConsentStatusDoNotCall,
}

// IsValidConsentStatus checks if the given status is valid.
func IsValidConsentStatus(s ConsentStatus) bool {
	for _, v := range ValidConsentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Usable returns true when the asserted status permits contact.
func (s ConsentStatus) Usable() bool {
	return s == ConsentStatusExpressWritten || s == ConsentStatusPriorExpress
}

// ComplianceStatus is the standing of a consent record or contact log.
type ComplianceStatus string

const (
	ComplianceStatusCompliant ComplianceStatus = "COMPLIANT"
	ComplianceStatusViolation ComplianceStatus = "VIOLATION"
	ComplianceStatusRevoked   ComplianceStatus = "REVOKED"
)

// ConsentMethod constants describe how consent or an opt-out was captured.
const (
	ConsentMethodWebForm    = "WEB_FORM"
	ConsentMethodVerbal     = "VERBAL"
	ConsentMethodWritten    = "WRITTEN"
	ConsentMethodSMSKeyword = "SMS_KEYWORD"
)

// ConsentRetentionPeriod is the legal retention floor for consent records.
// Rows must not be deleted before must_retain_until by any maintenance
// process.
const ConsentRetentionPeriod = 4 * 365 * 24 * time.Hour

// ContactLog records one contact attempt that was not DNC-blocked. The
// phone number exists only as ciphertext; json tags keep both stored
// forms out of every response shape.
type ContactLog struct {
	ID         uuid.UUID `json:"id"`
	PropertyID uuid.UUID `json:"property_id"`
	UserID     uuid.UUID `json:"user_id"`

	Method        ContactMethod  `json:"contact_method"`
	ConsentStatus ConsentStatus  `json:"consent_status"`
	// ConsentMetadata carries whatever evidence the caller supplied for
	// the asserted status (capture date, form id, recording reference).
	ConsentMetadata map[string]any `json:"consent_metadata,omitempty"`

	PhoneEncrypted string `json:"-"`
	PhoneHash      string `json:"-"`

	// Violation marks the log-and-fail branch: the attempt happened
	// without usable consent and is recorded as such.
	Violation bool `json:"violation"`

	AttemptedAt time.Time `json:"attempted_at"`
}

// ConsentRecord is one captured consent event for a phone number. Not
// user-scoped: consent attaches to the number, not to whoever captured it.
type ConsentRecord struct {
	ID uuid.UUID `json:"id"`

	PhoneEncrypted string `json:"-"`
	PhoneHash      string `json:"-"`

	ConsentMethod    string    `json:"consent_method"`
	ConsentTimestamp time.Time `json:"consent_timestamp"`
	// Disclosures lists the acknowledgements presented at capture time.
	Disclosures []string `json:"disclosures,omitempty"`
	Notes       string   `json:"notes,omitempty"`

	// MustRetainUntil is the hard legal retention floor (capture + 4y).
	MustRetainUntil  time.Time        `json:"must_retain_until"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`

	// Revocation fields are null while the consent is active.
	RevocationTimestamp *time.Time `json:"revocation_timestamp,omitempty"`
	RevocationMethod    *string    `json:"revocation_method,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Active returns true while the consent has not been revoked.
func (c *ConsentRecord) Active() bool {
	return c.RevocationTimestamp == nil
}

// DoNotCallEntry is one opted-out phone number, keyed by the same one-way
// hash used for consent lookups so opt-out checks never require
// decryption. Not user-scoped.
type DoNotCallEntry struct {
	ID        uuid.UUID `json:"id"`
	PhoneHash string    `json:"phone_hash"`
	// Source describes how the entry was created (opt-out method).
	Source string `json:"source"`
	// ExpiryDate nil means permanent.
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ActiveAt returns true if the entry blocks contact at the given time.
func (e *DoNotCallEntry) ActiveAt(now time.Time) bool {
	return e.ExpiryDate == nil || e.ExpiryDate.After(now)
}
