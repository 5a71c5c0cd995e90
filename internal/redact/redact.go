// Package redact masks identifier-like and contact substrings before text leaves the host.
package redact

import "regexp"

const ellipsis = "…"

var (
	digitRun = regexp.MustCompile(`\b[0-9]{16,}\b`)
	hexRun   = regexp.MustCompile(`(?i)\b[a-f0-9-]{24,}\b`)
	email    = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
)

// Redact replaces long digit runs, long hex/opaque IDs and email addresses.
// It is best-effort and never fails; empty input yields empty output.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = digitRun.ReplaceAllStringFunc(s, func(m string) string {
		return keepEnds(m, 4, 4)
	})
	s = hexRun.ReplaceAllStringFunc(s, func(m string) string {
		return keepEnds(m, 6, 4)
	})
	return email.ReplaceAllString(s, "***@***")
}

// All redacts every entry in place and returns the slice.
func All(values []string) []string {
	for i, v := range values {
		values[i] = Redact(v)
	}
	return values
}

// keepEnds keeps head leading and tail trailing bytes of an ASCII match.
func keepEnds(m string, head, tail int) string {
	if len(m) <= head+tail {
		return m
	}
	return m[:head] + ellipsis + m[len(m)-tail:]
}
