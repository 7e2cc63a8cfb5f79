package textutil

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var blockBoundary = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|ul|ol|tr|td|table|section|article|blockquote)>|<br\s*/?>`)

// CleanText collapses runs of whitespace (including non-breaking spaces) into
// single spaces and trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// ExtractText renders the visible text of an HTML fragment. Upstream job
// descriptions arrive as rich HTML; filtering and display want plain text.
// On parse failure the raw input is cleaned and returned as-is.
func ExtractText(htmlFragment string) string {
	if strings.TrimSpace(htmlFragment) == "" {
		return ""
	}

	// Block-level closings become word boundaries; otherwise "</h2><p>"
	// glues headline and body together.
	spaced := blockBoundary.ReplaceAllString(htmlFragment, "$0 ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return CleanText(htmlFragment)
	}

	doc.Find("script, style, noscript").Remove()
	return CleanText(doc.Text())
}
