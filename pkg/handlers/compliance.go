package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
	"github.com/dealbase-inc/dealbase-engine/pkg/auth"
	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/repositories"
	"github.com/dealbase-inc/dealbase-engine/pkg/services"
)

// ComplianceHandler handles the contact compliance HTTP surface. No
// response written by this handler ever carries a phone number, its
// ciphertext, or its hash.
type ComplianceHandler struct {
	complianceService services.ComplianceService
	logger            *zap.Logger
}

// NewComplianceHandler creates a new compliance handler.
func NewComplianceHandler(complianceService services.ComplianceService, logger *zap.Logger) *ComplianceHandler {
	return &ComplianceHandler{
		complianceService: complianceService,
		logger:            logger,
	}
}

// RegisterRoutes registers the compliance routes on the given mux.
func (h *ComplianceHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/compliance/contact-validations", authMiddleware.RequireAuth(h.ValidateContact))
	mux.HandleFunc("GET /api/compliance/dnc-check", authMiddleware.RequireAuth(h.CheckDNC))
	mux.HandleFunc("POST /api/compliance/consents", authMiddleware.RequireAuth(h.RecordConsent))
	mux.HandleFunc("POST /api/compliance/opt-outs", authMiddleware.RequireAuth(h.ProcessOptOut))
	mux.HandleFunc("GET /api/compliance/contact-logs", authMiddleware.RequireAuth(h.ListContactLogs))
}

type validateContactRequest struct {
	PropertyID      uuid.UUID      `json:"property_id"`
	Phone           string         `json:"phone"`
	ContactMethod   string         `json:"contact_method"`
	ConsentStatus   string         `json:"consent_status"`
	ConsentMetadata map[string]any `json:"consent_metadata,omitempty"`
}

// violationResponse is the 200-status shape for a logged consent
// violation: the request was processed (and recorded), the contact must
// not proceed.
type violationResponse struct {
	Success      bool      `json:"success"`
	Violation    bool      `json:"violation"`
	Code         string    `json:"code"`
	ContactLogID uuid.UUID `json:"contact_log_id"`
	Message      string    `json:"message"`
}

// ValidateContact handles POST /api/compliance/contact-validations
func (h *ComplianceHandler) ValidateContact(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req validateContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	log, err := h.complianceService.ValidateContact(r.Context(), userID, req.PropertyID,
		req.Phone, models.ContactMethod(req.ContactMethod), models.ConsentStatus(req.ConsentStatus),
		req.ConsentMetadata)
	if err != nil {
		// A consent violation is not a transport failure: the attempt was
		// recorded and the caller gets a 200 explaining that contact must
		// not proceed.
		var violation *apperrors.ComplianceViolationError
		if errors.As(err, &violation) {
			if werr := WriteJSON(w, http.StatusOK, violationResponse{
				Success:      false,
				Violation:    true,
				Code:         violation.Code,
				ContactLogID: violation.ContactLogID,
				Message:      "Contact attempt recorded without usable consent; do not proceed",
			}); werr != nil {
				h.logger.Error("failed to write response", zap.Error(werr))
			}
			return
		}
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: log}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type dncCheckResponse struct {
	Blocked bool `json:"blocked"`
}

// CheckDNC handles GET /api/compliance/dnc-check?phone=
func (h *ComplianceHandler) CheckDNC(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "phone query parameter is required")
		return
	}

	blocked, err := h.complianceService.CheckDNC(r.Context(), phone)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: dncCheckResponse{Blocked: blocked}}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type recordConsentRequest struct {
	Phone         string   `json:"phone"`
	ConsentMethod string   `json:"consent_method"`
	Disclosures   []string `json:"disclosures,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

// RecordConsent handles POST /api/compliance/consents
func (h *ComplianceHandler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	var req recordConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	receipt, err := h.complianceService.RecordConsent(r.Context(), req.Phone, req.ConsentMethod, req.Disclosures, req.Notes)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: receipt}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

type optOutRequest struct {
	Phone  string `json:"phone"`
	Method string `json:"method,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// ProcessOptOut handles POST /api/compliance/opt-outs
func (h *ComplianceHandler) ProcessOptOut(w http.ResponseWriter, r *http.Request) {
	var req optOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.complianceService.ProcessOptOut(r.Context(), req.Phone, req.Method, req.Notes)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

// ListContactLogs handles GET /api/compliance/contact-logs
func (h *ComplianceHandler) ListContactLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.RequireUserUUIDFromContext(r.Context())
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	filters, err := parseContactLogFilters(r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	logs, total, err := h.complianceService.ListContactLogs(r.Context(), userID, filters)
	if err != nil {
		HandleServiceError(w, h.logger, err)
		return
	}
	if logs == nil {
		logs = make([]*models.ContactLog, 0)
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data: PaginatedResponse{
			Items:  logs,
			Total:  total,
			Limit:  filters.Limit,
			Offset: filters.Offset,
		},
	}); err != nil {
		h.logger.Error("failed to write response", zap.Error(err))
	}
}

func parseContactLogFilters(r *http.Request) (repositories.ContactLogFilters, error) {
	filters := repositories.ContactLogFilters{
		Method:        models.ContactMethod(r.URL.Query().Get("method")),
		ConsentStatus: models.ConsentStatus(r.URL.Query().Get("consent_status")),
	}
	filters.Limit, filters.Offset = parsePagination(r)

	if v := r.URL.Query().Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, errors.New("from must be an RFC 3339 timestamp")
		}
		filters.From = &from
	}
	if v := r.URL.Query().Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filters, errors.New("to must be an RFC 3339 timestamp")
		}
		filters.To = &to
	}
	return filters, nil
}
