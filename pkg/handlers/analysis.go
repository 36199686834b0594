package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/jsonutil"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/scoring"
)

// AnalysisHandler exposes the pure analysis calculations: maximum
// allowable offer and deal risk flags. Nothing here persists anything.
type AnalysisHandler struct {
	logger *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{logger: logger}
}

// RegisterRoutes registers the analysis routes on the given mux.
func (h *AnalysisHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/analysis/mao", authMiddleware.RequireAuth(h.CalculateMAO))
	mux.HandleFunc("POST /api/analysis/deal", authMiddleware.RequireAuth(h.AnalyzeDeal))
}

// maoRequest accepts numbers or formatted strings ("$250,000") for its
// money fields, matching how property data feeds arrive.
type maoRequest struct {
	EstimatedValue json.RawMessage `json:"estimated_value"`
	RepairCosts    json.RawMessage `json:"repair_costs"`
}

// CalculateMAO handles POST /api/analysis/mao
func (h *AnalysisHandler) CalculateMAO(w http.ResponseWriter, r *http.Request) {
	var req maoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	estimatedValue, ok := flexibleNumber(req.EstimatedValue)
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "estimated_value must be a number")
		return
	}
	repairCosts := 0.0
	if len(req.RepairCosts) > 0 {
		repairCosts, ok = flexibleNumber(req.RepairCosts)
		if !ok {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "repair_costs must be a number")
			return
		}
	}

	result := scoring.CalculateMAO(estimatedValue, repairCosts)
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type analyzeDealRequest struct {
	Property      *models.Property `json:"property"`
	RepairCosts   float64          `json:"repair_costs"`
	PurchasePrice *float64         `json:"purchase_price,omitempty"`
}

type analyzeDealResponse struct {
	Flags []scoring.AnalysisFlag `json:"flags"`
}

// AnalyzeDeal handles POST /api/analysis/deal
func (h *AnalysisHandler) AnalyzeDeal(w http.ResponseWriter, r *http.Request) {
	var req analyzeDealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Property == nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "property is required")
		return
	}

	flags := scoring.Analyze(req.Property, req.RepairCosts, req.PurchasePrice)
	if flags == nil {
		flags = make([]scoring.AnalysisFlag, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: analyzeDealResponse{Flags: flags}}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// flexibleNumber decodes a JSON value that may be a bare number or a
// formatted money string.
func flexibleNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	return jsonutil.FlexibleFloat(jsonutil.FlexibleStringValue(raw))
}
