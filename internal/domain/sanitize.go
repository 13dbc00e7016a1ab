package domain

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const maxSanitizePasses = 8

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup (script/style bodies included), normalizes
// to NFC, trims and caps the result at maxRunes. maxRunes <= 0 means no cap.
//
// Entities are decoded after each pass and the text re-sanitized until it is
// stable, so "&lt;b&gt;" cannot smuggle a tag through.
func SanitizeText(raw string, maxRunes int) string {
	s, stable := raw, false
	for i := 0; i < maxSanitizePasses && !stable; i++ {
		next := html.UnescapeString(strictPolicy.Sanitize(s))
		stable = next == s
		s = next
	}
	if !stable {
		s = strictPolicy.Sanitize(s)
	}
	s = strings.TrimSpace(norm.NFC.String(s))
	if maxRunes > 0 {
		s = strings.TrimSpace(truncateRunes(s, maxRunes))
	}
	return s
}

func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
