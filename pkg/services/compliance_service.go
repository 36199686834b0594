package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/crypto"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
)

// dncCacheTTL bounds staleness of cached DNC answers. Opt-outs write
// through immediately, so the TTL only matters for entries created
// outside this service.
const dncCacheTTL = 15 * time.Minute

// ConsentReceipt is what RecordConsent returns: an acknowledgement that
// deliberately carries the phone number in no form at all.
type ConsentReceipt struct {
	ID               uuid.UUID `json:"id"`
	ConsentMethod    string    `json:"consent_method"`
	ConsentTimestamp time.Time `json:"consent_timestamp"`
	MustRetainUntil  time.Time `json:"must_retain_until"`
	ComplianceStatus string    `json:"compliance_status"`
}

// OptOutResult reports a processed opt-out.
type OptOutResult struct {
	Processed     bool      `json:"processed"`
	EffectiveDate time.Time `json:"effective_date"`
	// ConsentsRevoked counts the active consent records revoked in the
	// same transaction.
	ConsentsRevoked int `json:"consents_revoked"`
}

// ComplianceService is the mandatory gate in front of every outbound
// contact attempt. Its three outcomes have distinct persistence
// semantics: a DNC block records nothing (the contact never happened), a
// consent violation records the attempt and then fails, and a permitted
// attempt records and returns.
type ComplianceService interface {
	// ValidateContact gates one contact attempt. The phone number is
	// hashed for the DNC check and stored encrypted; the returned log
	// never carries it in any readable form.
	ValidateContact(ctx context.Context, userID, propertyID uuid.UUID, phone string, method models.ContactMethod, consentStatus models.ConsentStatus, meta map[string]any) (*models.ContactLog, error)

	// CheckDNC reports whether a number is blocked. Not-listed is a
	// normal answer, never an error.
	CheckDNC(ctx context.Context, phone string) (bool, error)

	// RecordConsent captures a consent event with a four year retention
	// floor.
	RecordConsent(ctx context.Context, phone, consentMethod string, disclosures []string, notes string) (*ConsentReceipt, error)

	// ProcessOptOut permanently adds the number to the do-not-call list
	// and revokes its active consent records, atomically. Idempotent:
	// opting out an already opted-out number succeeds.
	ProcessOptOut(ctx context.Context, phone, method, notes string) (*OptOutResult, error)

	// ListContactLogs is the audit read path.
	ListContactLogs(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error)
}

// dncCache is the subset of the Redis client the DNC pre-flight uses.
type dncCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type complianceService struct {
	db          DB
	contactLogs repositories.ContactLogRepository
	consents    repositories.ConsentRepository
	dnc         repositories.DNCRepository
	protector   *crypto.PhoneProtector
	cache       dncCache // nil disables caching
	logger      *zap.Logger
}

// NewComplianceService creates a new ComplianceService. cache may be nil,
// in which case every DNC check goes to the store.
func NewComplianceService(
	db DB,
	contactLogs repositories.ContactLogRepository,
	consents repositories.ConsentRepository,
	dnc repositories.DNCRepository,
	protector *crypto.PhoneProtector,
	cache *redis.Client,
	logger *zap.Logger,
) ComplianceService {
	s := &complianceService{
		db:          db,
		contactLogs: contactLogs,
		consents:    consents,
		dnc:         dnc,
		protector:   protector,
		logger:      logger.Named("compliance-service"),
	}
	if cache != nil {
		s.cache = cache
	}
	return s
}

var _ ComplianceService = (*complianceService)(nil)

func (s *complianceService) ValidateContact(ctx context.Context, userID, propertyID uuid.UUID, phone string, method models.ContactMethod, consentStatus models.ConsentStatus, meta map[string]any) (*models.ContactLog, error) {
	if crypto.NormalizePhone(phone) == "" {
		return nil, apperrors.NewValidation("phone", "phone number is required")
	}
	if !models.IsValidContactMethod(method) {
		return nil, apperrors.NewValidation("contact_method", fmt.Sprintf("unknown contact method %q", method))
	}
	if !models.IsValidConsentStatus(consentStatus) {
		return nil, apperrors.NewValidation("consent_status", fmt.Sprintf("unknown consent status %q", consentStatus))
	}

	phoneHash := s.protector.Hash(phone)

	blocked, err := s.dncBlocked(ctx, phoneHash)
	if err != nil {
		return nil, err
	}
	if blocked {
		// Nothing is persisted: a blocked attempt must leave no trace of
		// the number beyond this refusal.
		s.logger.Warn("contact attempt blocked by do-not-call list",
			zap.String("user_id", userID.String()))
		return nil, &apperrors.DNCBlockedError{PhoneHash: phoneHash}
	}

	encrypted, err := s.protector.Encrypt(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	log := &models.ContactLog{
		PropertyID:      propertyID,
		UserID:          userID,
		Method:          method,
		ConsentStatus:   consentStatus,
		ConsentMetadata: meta,
		PhoneEncrypted:  encrypted,
		PhoneHash:       phoneHash,
		Violation:       !consentStatus.Usable(),
	}

	if err := s.contactLogs.Insert(ctx, s.db, log); err != nil {
		return nil, err
	}

	if log.Violation {
		// Log-then-fail: the violation row is committed before the caller
		// hears no, so the audit trail includes the attempt.
		s.logger.Warn("contact attempt without usable consent",
			zap.String("user_id", userID.String()),
			zap.String("contact_log_id", log.ID.String()),
			zap.String("consent_status", string(consentStatus)))
		return nil, &apperrors.ComplianceViolationError{
			Code:         apperrors.CodeNoConsent,
			ContactLogID: log.ID,
		}
	}

	return log, nil
}

func (s *complianceService) CheckDNC(ctx context.Context, phone string) (bool, error) {
	if crypto.NormalizePhone(phone) == "" {
		return false, apperrors.NewValidation("phone", "phone number is required")
	}
	return s.dncBlocked(ctx, s.protector.Hash(phone))
}

// dncBlocked consults the cache first when one is configured. Cache
// errors degrade to a store lookup instead of failing the check. Only
// positive hits are ever cached: a cached "not blocked" written after a
// concurrent opt-out commits would mask the block for a full TTL, so a
// negative always goes to the store.
func (s *complianceService) dncBlocked(ctx context.Context, phoneHash string) (bool, error) {
	key := dncCacheKey(phoneHash)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil && cached == "1" {
			return true, nil
		}
		if err != nil && err != redis.Nil {
			s.logger.Warn("dnc cache read failed, falling back to store", zap.Error(err))
		}
	}

	entry, err := s.dnc.FindActiveByHash(ctx, phoneHash, time.Now().UTC())
	if err != nil {
		return false, err
	}
	blocked := entry != nil

	if blocked && s.cache != nil {
		if err := s.cache.Set(ctx, key, "1", dncCacheTTL).Err(); err != nil {
			s.logger.Warn("dnc cache write failed", zap.Error(err))
		}
	}
	return blocked, nil
}

func dncCacheKey(phoneHash string) string {
	return "dnc:" + phoneHash
}

func (s *complianceService) RecordConsent(ctx context.Context, phone, consentMethod string, disclosures []string, notes string) (*ConsentReceipt, error) {
	if crypto.NormalizePhone(phone) == "" {
		return nil, apperrors.NewValidation("phone", "phone number is required")
	}
	if consentMethod == "" {
		return nil, apperrors.NewValidation("consent_method", "consent method is required")
	}

	encrypted, err := s.protector.Encrypt(phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	now := time.Now().UTC()
	record := &models.ConsentRecord{
		PhoneEncrypted:   encrypted,
		PhoneHash:        s.protector.Hash(phone),
		ConsentMethod:    consentMethod,
		ConsentTimestamp: now,
		Disclosures:      disclosures,
		Notes:            notes,
		MustRetainUntil:  now.Add(models.ConsentRetentionPeriod),
		ComplianceStatus: models.ComplianceStatusCompliant,
	}
	if err := s.consents.Insert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("consent recorded",
		zap.String("consent_id", record.ID.String()),
		zap.String("method", consentMethod))

	return &ConsentReceipt{
		ID:               record.ID,
		ConsentMethod:    record.ConsentMethod,
		ConsentTimestamp: record.ConsentTimestamp,
		MustRetainUntil:  record.MustRetainUntil,
		ComplianceStatus: string(record.ComplianceStatus),
	}, nil
}

func (s *complianceService) ProcessOptOut(ctx context.Context, phone, method, notes string) (*OptOutResult, error) {
	if crypto.NormalizePhone(phone) == "" {
		return nil, apperrors.NewValidation("phone", "phone number is required")
	}
	if method == "" {
		method = models.ConsentMethodVerbal
	}

	phoneHash := s.protector.Hash(phone)
	now := time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Permanent entry: nil expiry. The upsert keeps permanence even if a
	// dated entry is registered for the same number later.
	entry := &models.DoNotCallEntry{
		PhoneHash: phoneHash,
		Source:    method,
	}
	if err := s.dnc.Upsert(ctx, tx, entry); err != nil {
		return nil, err
	}

	revoked, err := s.consents.RevokeActiveByHash(ctx, tx, phoneHash, method, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit opt-out: %w", err)
	}

	// Write-through so the next DNC check blocks without a store trip.
	if s.cache != nil {
		if err := s.cache.Set(ctx, dncCacheKey(phoneHash), "1", dncCacheTTL).Err(); err != nil {
			s.logger.Warn("dnc cache write failed after opt-out", zap.Error(err))
		}
	}

	s.logger.Info("opt-out processed",
		zap.String("method", method),
		zap.Int("consents_revoked", revoked))

	return &OptOutResult{
		Processed:       true,
		EffectiveDate:   now,
		ConsentsRevoked: revoked,
	}, nil
}

func (s *complianceService) ListContactLogs(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error) {
	return s.contactLogs.ListByUser(ctx, userID, filters)
}
