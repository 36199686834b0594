package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
)

// withUser injects authenticated claims for userID into the request
// context, the way the auth middleware would after token validation.
func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	claims := &auth.Claims{}
	claims.Subject = userID.String()
	claims.Email = "user@example.com"
	ctx := context.WithValue(req.Context(), auth.ClaimsKey, claims)
	return req.WithContext(ctx)
}

type mockDealService struct {
	createFn     func(ctx context.Context, userID, propertyID uuid.UUID) (*models.Deal, error)
	getFn        func(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error)
	listFn       func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error)
	historyFn    func(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error)
	transitionFn func(ctx context.Context, dealID, userID uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error)
	evaluateFn   func(ctx context.Context, dealID, userID uuid.UUID) (*services.EvaluationOutcome, error)
}

var _ services.DealService = (*mockDealService)(nil)

func (m *mockDealService) Create(ctx context.Context, userID, propertyID uuid.UUID) (*models.Deal, error) {
	return m.createFn(ctx, userID, propertyID)
}

func (m *mockDealService) Get(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error) {
	return m.getFn(ctx, dealID, userID)
}

func (m *mockDealService) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
	return m.listFn(ctx, userID, limit, offset)
}

func (m *mockDealService) History(ctx context.Context, dealID, userID uuid.UUID) ([]*models.DealHistory, error) {
	return m.historyFn(ctx, dealID, userID)
}

func (m *mockDealService) Transition(ctx context.Context, dealID, userID uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error) {
	return m.transitionFn(ctx, dealID, userID, target, data, notes)
}

func (m *mockDealService) EvaluateAndApply(ctx context.Context, dealID, userID uuid.UUID) (*services.EvaluationOutcome, error) {
	return m.evaluateFn(ctx, dealID, userID)
}

type mockComplianceService struct {
	validateContactFn func(ctx context.Context, userID, propertyID uuid.UUID, phone string, method models.ContactMethod, consentStatus models.ConsentStatus, meta map[string]any) (*models.ContactLog, error)
	checkDNCFn        func(ctx context.Context, phone string) (bool, error)
	recordConsentFn   func(ctx context.Context, phone, consentMethod string, disclosures []string, notes string) (*services.ConsentReceipt, error)
	processOptOutFn   func(ctx context.Context, phone, method, notes string) (*services.OptOutResult, error)
	listContactLogsFn func(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error)
}

var _ services.ComplianceService = (*mockComplianceService)(nil)

func (m *mockComplianceService) ValidateContact(ctx context.Context, userID, propertyID uuid.UUID, phone string, method models.ContactMethod, consentStatus models.ConsentStatus, meta map[string]any) (*models.ContactLog, error) {
	return m.validateContactFn(ctx, userID, propertyID, phone, method, consentStatus, meta)
}

func (m *mockComplianceService) CheckDNC(ctx context.Context, phone string) (bool, error) {
	return m.checkDNCFn(ctx, phone)
}

func (m *mockComplianceService) RecordConsent(ctx context.Context, phone, consentMethod string, disclosures []string, notes string) (*services.ConsentReceipt, error) {
	return m.recordConsentFn(ctx, phone, consentMethod, disclosures, notes)
}

func (m *mockComplianceService) ProcessOptOut(ctx context.Context, phone, method, notes string) (*services.OptOutResult, error) {
	return m.processOptOutFn(ctx, phone, method, notes)
}

func (m *mockComplianceService) ListContactLogs(ctx context.Context, userID uuid.UUID, filters repositories.ContactLogFilters) ([]*models.ContactLog, int, error) {
	return m.listContactLogsFn(ctx, userID, filters)
}

type mockSkipTraceService struct {
	enqueueFn func(ctx context.Context, propertyID uuid.UUID, addressLine1, city, state, postalCode string) (*models.SkipTraceJob, error)
	getFn     func(ctx context.Context, jobID uuid.UUID) (*models.SkipTraceJob, error)
}

var _ services.SkipTraceService = (*mockSkipTraceService)(nil)

func (m *mockSkipTraceService) Enqueue(ctx context.Context, propertyID uuid.UUID, addressLine1, city, state, postalCode string) (*models.SkipTraceJob, error) {
	return m.enqueueFn(ctx, propertyID, addressLine1, city, state, postalCode)
}

func (m *mockSkipTraceService) Get(ctx context.Context, jobID uuid.UUID) (*models.SkipTraceJob, error) {
	return m.getFn(ctx, jobID)
}

// decodeApiResponse unmarshals the standard envelope, failing the test on
// malformed JSON.
func decodeApiResponse(t *testing.T, body []byte) ApiResponse {
	t.Helper()
	var resp ApiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return resp
}
