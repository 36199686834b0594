package logging

import (
	"regexp"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx in connection strings.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches connection string credentials (user:pass@host format).
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Matches US phone numbers in common formats: +1 (555) 123-4567,
	// 555-123-4567, 555.123.4567, 5551234567. Phone numbers must never
	// appear in logs or surfaced error strings.
	phonePattern = regexp.MustCompile(`(\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`)
)

// SanitizeConnectionString removes credentials from connection strings
// before logging.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive
// data. Use this before logging any error produced while handling contact
// attempts, since driver errors can echo query arguments.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	sanitized = phonePattern.ReplaceAllString(sanitized, RedactedText)

	return sanitized
}

// RedactPhone replaces anything phone-shaped in s with RedactedText.
func RedactPhone(s string) string {
	if s == "" {
		return ""
	}
	return phonePattern.ReplaceAllString(s, RedactedText)
}
