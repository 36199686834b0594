// Package testhelpers provides utilities for testing dealbase-engine components.
package testhelpers

import (
	"encoding/base64"
	"fmt"
)

// GenerateTestJWT creates a test JWT token for use when verification is
// disabled. The token has a valid structure but no signature (alg: none).
// The subject must be a user UUID for the auth middleware to accept it.
func GenerateTestJWT(sub, email string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	payload := fmt.Sprintf(`{"sub":"%s"`, sub)
	if email != "" {
		payload += fmt.Sprintf(`,"email":"%s"`, email)
	}
	payload += "}"

	encodedPayload := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns the token with a "Bearer " prefix for
// the Authorization header.
func GenerateTestJWTWithBearer(sub, email string) string {
	return "Bearer " + GenerateTestJWT(sub, email)
}
