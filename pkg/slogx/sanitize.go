package slogx

import "strings"

// Sanitize strips control characters from a header-derived or user-derived
// string and caps its length so hostile input cannot inject log lines.
func Sanitize(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || (r >= 0x7f && r <= 0x9f) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// TokenPreview returns a loggable representation of a bearer token.
// Unless sensitive logging is enabled the token bytes never reach the logs.
func TokenPreview(token string, sensitive bool) string {
	if !sensitive {
		return "[redacted]"
	}
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
