// Package handlers wires the engine's services to HTTP. Handlers parse
// and validate transport concerns, delegate to services, and map the
// error taxonomy onto status codes; they hold no business logic.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dealbase-inc/dealbase-engine/pkg/apperrors"
)

// ApiResponse is the standard response envelope.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// PaginatedResponse wraps paginated results with metadata.
type PaginatedResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// HandleServiceError maps the service error taxonomy onto HTTP status
// codes: not-found (which deliberately covers ownership misses) is 404,
// bad input 400, refused business rules 422, DNC blocks 403, everything
// unexpected 500. ComplianceViolationError is not handled here; the
// compliance handler gives it its own 200-with-violation shape.
func HandleServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		validationErr *apperrors.ValidationError
		ruleErr       *apperrors.RuleViolationError
		dncErr        *apperrors.DNCBlockedError
	)

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, logger, http.StatusNotFound, "not_found", "Resource not found")
	case errors.As(err, &validationErr):
		writeError(w, logger, http.StatusBadRequest, "validation_error", validationErr.Error())
	case errors.As(err, &ruleErr):
		writeError(w, logger, http.StatusUnprocessableEntity, ruleErr.Code, ruleErr.Message)
	case errors.As(err, &dncErr):
		// The response names the block but never the hash.
		writeError(w, logger, http.StatusForbidden, "dnc_blocked", "Number is on the do-not-call list")
	default:
		logger.Error("unhandled service error", zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		logger.Error("failed to write error response", zap.Error(err))
	}
}
