package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
)

func TestCreateDeal_Success(t *testing.T) {
	userID := uuid.New()
	propertyID := uuid.New()
	dealService := &mockDealService{
		createFn: func(ctx context.Context, gotUser, gotProperty uuid.UUID) (*models.Deal, error) {
			assert.Equal(t, userID, gotUser)
			assert.Equal(t, propertyID, gotProperty)
			return &models.Deal{ID: uuid.New(), UserID: gotUser, PropertyID: gotProperty, Status: models.DealStatusNew}, nil
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	body, _ := json.Marshal(createDealRequest{PropertyID: propertyID})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewReader(body)), userID)
	rec := httptest.NewRecorder()

	handler.CreateDeal(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeApiResponse(t, rec.Body.Bytes())
	assert.True(t, resp.Success)
}

func TestCreateDeal_MissingPropertyID(t *testing.T) {
	handler := NewDealsHandler(&mockDealService{}, zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewReader([]byte(`{}`))), uuid.New())
	rec := httptest.NewRecorder()

	handler.CreateDeal(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "property_id")
}

func TestCreateDeal_NoClaims(t *testing.T) {
	handler := NewDealsHandler(&mockDealService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/deals", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	handler.CreateDeal(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetDeal_NotFoundForForeignDeal(t *testing.T) {
	dealService := &mockDealService{
		getFn: func(ctx context.Context, dealID, userID uuid.UUID) (*models.Deal, error) {
			return nil, apperrors.ErrNotFound
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/deals/"+dealID.String(), nil)
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.GetDeal(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestGetDeal_InvalidID(t *testing.T) {
	handler := NewDealsHandler(&mockDealService{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/deals/not-a-uuid", nil)
	req.SetPathValue("deal_id", "not-a-uuid")
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.GetDeal(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_deal_id")
}

func TestListDeals_EmptyIsAnArrayNotNull(t *testing.T) {
	dealService := &mockDealService{
		listFn: func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
			assert.Equal(t, 50, limit)
			assert.Equal(t, 0, offset)
			return nil, nil
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/deals", nil), uuid.New())
	rec := httptest.NewRecorder()

	handler.ListDeals(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
	assert.NotContains(t, rec.Body.String(), `"items":null`)
}

func TestListDeals_PaginationClamped(t *testing.T) {
	dealService := &mockDealService{
		listFn: func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Deal, error) {
			// An out-of-range limit falls back to the default.
			assert.Equal(t, 50, limit)
			assert.Equal(t, 10, offset)
			return []*models.Deal{}, nil
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/deals?limit=9999&offset=10", nil), uuid.New())
	rec := httptest.NewRecorder()

	handler.ListDeals(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransitionDeal_RuleViolationMapsTo422(t *testing.T) {
	dealService := &mockDealService{
		transitionFn: func(ctx context.Context, dealID, userID uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error) {
			return nil, apperrors.NewRuleViolation(apperrors.CodeInvalidTransition, "cannot transition from NEW to CLOSED")
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	dealID := uuid.New()
	body := []byte(`{"target_status":"CLOSED"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+dealID.String()+"/transition", bytes.NewReader(body))
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.TransitionDeal(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), apperrors.CodeInvalidTransition)
}

func TestTransitionDeal_PassesTransitionData(t *testing.T) {
	userID := uuid.New()
	dealID := uuid.New()
	var gotData *models.TransitionData
	dealService := &mockDealService{
		transitionFn: func(ctx context.Context, gotDeal, gotUser uuid.UUID, target models.DealStatus, data *models.TransitionData, notes string) (*models.Deal, error) {
			gotData = data
			assert.Equal(t, models.DealStatusClosed, target)
			assert.Equal(t, "final walkthrough done", notes)
			return &models.Deal{ID: gotDeal, UserID: gotUser, Status: models.DealStatusClosed}, nil
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	body := []byte(`{"target_status":"CLOSED","notes":"final walkthrough done","closed_date":"2026-08-01T00:00:00Z","estimated_profit":42500.50}`)
	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+dealID.String()+"/transition", bytes.NewReader(body))
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, userID)
	rec := httptest.NewRecorder()

	handler.TransitionDeal(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotData)
	require.NotNil(t, gotData.ClosedDate)
	require.NotNil(t, gotData.EstimatedProfit)
	assert.Equal(t, 42500.50, *gotData.EstimatedProfit)
}

func TestTransitionDeal_MissingTargetStatus(t *testing.T) {
	handler := NewDealsHandler(&mockDealService{}, zap.NewNop())

	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+dealID.String()+"/transition", bytes.NewReader([]byte(`{}`)))
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.TransitionDeal(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "target_status")
}

func TestEvaluateDeal_ValidationErrorMapsTo400(t *testing.T) {
	dealService := &mockDealService{
		evaluateFn: func(ctx context.Context, dealID, userID uuid.UUID) (*services.EvaluationOutcome, error) {
			return nil, apperrors.NewValidation("rules", "no enabled rules to evaluate")
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	dealID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/deals/"+dealID.String()+"/evaluate", nil)
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.EvaluateDeal(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")
}

func TestGetHistory_Success(t *testing.T) {
	dealID := uuid.New()
	dealService := &mockDealService{
		historyFn: func(ctx context.Context, gotDeal, userID uuid.UUID) ([]*models.DealHistory, error) {
			assert.Equal(t, dealID, gotDeal)
			return []*models.DealHistory{
				{ID: uuid.New(), DealID: gotDeal, FieldChanged: "status", OldValue: "NEW", NewValue: "ANALYZING"},
			}, nil
		},
	}
	handler := NewDealsHandler(dealService, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/deals/"+dealID.String()+"/history", nil)
	req.SetPathValue("deal_id", dealID.String())
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()

	handler.GetHistory(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ANALYZING")
}
