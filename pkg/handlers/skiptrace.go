package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
)

// SkipTraceHandler handles skip-trace job HTTP requests.
type SkipTraceHandler struct {
	skipTraceService services.SkipTraceService
	logger           *zap.Logger
}

// NewSkipTraceHandler creates a new skip-trace handler.
func NewSkipTraceHandler(skipTraceService services.SkipTraceService, logger *zap.Logger) *SkipTraceHandler {
	return &SkipTraceHandler{
		skipTraceService: skipTraceService,
		logger:           logger,
	}
}

// RegisterRoutes registers the skip-trace routes on the given mux.
func (h *SkipTraceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/skip-trace", authMiddleware.RequireAuth(h.Enqueue))
	mux.HandleFunc("GET /api/skip-trace/{job_id}", authMiddleware.RequireAuth(h.Get))
}

type enqueueSkipTraceRequest struct {
	PropertyID   uuid.UUID `json:"property_id"`
	AddressLine1 string    `json:"address_line1"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
}

// Enqueue handles POST /api/skip-trace
func (h *SkipTraceHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueSkipTraceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	job, err := h.skipTraceService.Enqueue(r.Context(), req.PropertyID, req.AddressLine1, req.City, req.State, req.PostalCode)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, ApiResponse{Success: true, Data: job}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/skip-trace/{job_id}
func (h *SkipTraceHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_job_id", "Invalid job ID")
		return
	}

	job, err := h.skipTraceService.Get(r.Context(), jobID)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: job}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}
