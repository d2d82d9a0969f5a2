// Package validate provides the junk predicates applied to free-text
// feedback before it is cleaned or synced.
package validate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NormalizeSpace collapses every run of whitespace to a single space and
// trims the ends. Sentences typed with doubled spaces otherwise trip the
// markup check below.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ContainsHTML reports whether the text carries markup or hyperlinks. The
// check parses the text as HTML and compares the extracted text length
// against the input: any tag or entity swallowed by the parser shortens the
// output.
func ContainsHTML(text string) bool {
	if text == "" {
		return false
	}
	normalized := NormalizeSpace(text)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(normalized))
	if err != nil {
		// Unparseable input is treated as markup; it is junk either way.
		return true
	}
	parsed := strings.TrimSpace(doc.Text())
	return len(parsed) != len(strings.TrimSpace(normalized))
}

// DuplicateKey normalizes a comment body for intra-batch duplicate
// detection: trimmed, lowercased, nothing else.
func DuplicateKey(comment string) string {
	return strings.ToLower(strings.TrimSpace(comment))
}
