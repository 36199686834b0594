package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
)

// DealsHandler handles deal lifecycle HTTP requests.
type DealsHandler struct {
	dealService services.DealService
	logger      *zap.Logger
}

// NewDealsHandler creates a new deals handler.
func NewDealsHandler(dealService services.DealService, logger *zap.Logger) *DealsHandler {
	return &DealsHandler{
		dealService: dealService,
		logger:      logger,
	}
}

// RegisterRoutes registers the deal routes on the given mux.
func (h *DealsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/deals", authMiddleware.RequireAuth(h.CreateDeal))
	mux.HandleFunc("GET /api/deals", authMiddleware.RequireAuth(h.ListDeals))
	mux.HandleFunc("GET /api/deals/{deal_id}", authMiddleware.RequireAuth(h.GetDeal))
	mux.HandleFunc("GET /api/deals/{deal_id}/history", authMiddleware.RequireAuth(h.GetHistory))
	mux.HandleFunc("POST /api/deals/{deal_id}/evaluate", authMiddleware.RequireAuth(h.EvaluateDeal))
	mux.HandleFunc("POST /api/deals/{deal_id}/transition", authMiddleware.RequireAuth(h.TransitionDeal))
}

type createDealRequest struct {
	PropertyID uuid.UUID `json:"property_id"`
}

// CreateDeal handles POST /api/deals
func (h *DealsHandler) CreateDeal(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req createDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.PropertyID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "property_id is required")
		return
	}

	deal, err := h.dealService.Create(r.Context(), userID, req.PropertyID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: deal}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListDeals handles GET /api/deals
func (h *DealsHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	limit, offset := parsePagination(r)
	deals, err := h.dealService.List(r.Context(), userID, limit, offset)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}
	if deals == nil {
		deals = make([]*models.Deal, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: PaginatedResponse{
			Items:  deals,
			Total:  len(deals),
			Limit:  limit,
			Offset: offset,
		},
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// GetDeal handles GET /api/deals/{deal_id}
func (h *DealsHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	userID, dealID, ok := h.parseDealRequest(w, r)
	if !ok {
		return
	}

	deal, err := h.dealService.Get(r.Context(), dealID, userID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: deal}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// GetHistory handles GET /api/deals/{deal_id}/history
func (h *DealsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, dealID, ok := h.parseDealRequest(w, r)
	if !ok {
		return
	}

	history, err := h.dealService.History(r.Context(), dealID, userID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}
	if history == nil {
		history = make([]*models.DealHistory, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: history}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// EvaluateDeal handles POST /api/deals/{deal_id}/evaluate
func (h *DealsHandler) EvaluateDeal(w http.ResponseWriter, r *http.Request) {
	userID, dealID, ok := h.parseDealRequest(w, r)
	if !ok {
		return
	}

	outcome, err := h.dealService.EvaluateAndApply(r.Context(), dealID, userID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: outcome}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type transitionRequest struct {
	TargetStatus    string     `json:"target_status"`
	Notes           string     `json:"notes"`
	ClosedDate      *time.Time `json:"closed_date,omitempty"`
	EstimatedProfit *float64   `json:"estimated_profit,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
}

// TransitionDeal handles POST /api/deals/{deal_id}/transition
func (h *DealsHandler) TransitionDeal(w http.ResponseWriter, r *http.Request) {
	userID, dealID, ok := h.parseDealRequest(w, r)
	if !ok {
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.TargetStatus == "" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "target_status is required")
		return
	}

	data := &models.TransitionData{
		ClosedDate:      req.ClosedDate,
		EstimatedProfit: req.EstimatedProfit,
		RejectionReason: req.RejectionReason,
	}

	deal, err := h.dealService.Transition(r.Context(), dealID, userID, models.DealStatus(req.TargetStatus), data, req.Notes)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: deal}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// parseDealRequest resolves the authenticated user and the deal_id path
// parameter, writing the error response itself on failure.
func (h *DealsHandler) parseDealRequest(w http.ResponseWriter, r *http.Request) (userID, dealID uuid.UUID, ok bool) {
	userID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	dealID, err = uuid.Parse(r.PathValue("deal_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_deal_id", "Invalid deal ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, dealID, true
}

// parsePagination reads limit/offset query parameters with the shared
// defaults.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
