// Package scrub removes personally identifiable content from free-text
// feedback. The pipeline depends only on the Sanitizer interface; the
// bundled Redactor is the default implementation.
package scrub

import (
	"regexp"
	"strings"
)

// Sanitizer rewrites free text with personal information removed. Pure
// function of its input, safe for concurrent use.
type Sanitizer interface {
	Clean(text string) string
}

const mask = "[redacted]"

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)
	// Social insurance numbers: nine digits, optionally grouped 3-3-3.
	sinRe      = regexp.MustCompile(`\b\d{3}[\s\-]?\d{3}[\s\-]?\d{3}\b`)
	passportRe = regexp.MustCompile(`\b[A-Za-z]{2}\d{6}\b`)
	// Any remaining long digit run (account, case, or card numbers).
	digitRunRe = regexp.MustCompile(`\b\d{9,}\b`)
)

// Redactor is the default Sanitizer. It masks emails, phone numbers,
// SIN-shaped digit groups, passport numbers, and long digit runs.
type Redactor struct{}

// NewRedactor returns the default pattern-based sanitizer.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// Clean masks recognized personal information and collapses the extra
// whitespace the masking leaves behind.
func (r *Redactor) Clean(text string) string {
	if text == "" {
		return text
	}
	out := emailRe.ReplaceAllString(text, mask)
	out = phoneRe.ReplaceAllString(out, mask)
	out = sinRe.ReplaceAllString(out, mask)
	out = passportRe.ReplaceAllString(out, mask)
	out = digitRunRe.ReplaceAllString(out, mask)
	return strings.TrimSpace(out)
}
