package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// AuthService defines the interface for authentication operations,
// separating HTTP handling from token validation so both are testable.
type AuthService interface {
	// ValidateRequest extracts and validates the bearer JWT from the
	// Authorization header. Returns the validated claims and the raw
	// token string.
	ValidateRequest(r *http.Request) (*Claims, string, error)
}

type authService struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService with the given JWKS client.
func NewAuthService(jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("no JWT found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, "", ErrMissingAuthorization
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		s.logger.Debug("invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, "", ErrInvalidAuthFormat
	}

	claims, err := s.jwksClient.ValidateToken(parts[1])
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, "", err
	}

	return claims, parts[1], nil
}
