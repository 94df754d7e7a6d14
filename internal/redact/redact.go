// Package redact scrubs sensitive material from error strings before they
// reach logs: connection strings, JWTs, shared secrets, and email addresses
// from applicant profiles.
package redact

import "regexp"

// RedactionPlaceholder is the generic replacement for sensitive content.
const RedactionPlaceholder = "[REDACTED]"

var (
	// Database connection strings with inline credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Secrets and tokens passed as key=value or key: value
	secretRegex = regexp.MustCompile(
		`(?i)(secret|token|password|api[_-]?key|jwt[_-]?secret)(['"\s:=]+)[^'"&\s]{3,}`,
	)

	// Standard three-part base64url JWT
	jwtTokenRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Email addresses (applicant profiles carry them)
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	replacements = []struct {
		re          *regexp.Regexp
		placeholder string
	}{
		{dbConnRegex, "[REDACTED_CREDENTIAL]@"},
		{jwtTokenRegex, "[REDACTED_JWT]"},
		{secretRegex, "$1$2" + RedactionPlaceholder},
		{emailRegex, "[REDACTED_EMAIL]"},
	}
)

// String returns s with all recognized sensitive patterns replaced.
func String(s string) string {
	for _, r := range replacements {
		s = r.re.ReplaceAllString(s, r.placeholder)
	}
	return s
}

// Error returns the redacted message of err, or "" for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
