package security

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ValidateText checks a pasted job description. Length is measured in
// characters after trimming surrounding whitespace.
func ValidateText(text string) (bool, string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, "Text content is empty"
	}
	n := utf8.RuneCountInString(trimmed)
	if n < MinTextLength {
		return false, fmt.Sprintf("Text too short (minimum %d characters)", MinTextLength)
	}
	if n > MaxTextLength {
		return false, fmt.Sprintf("Text too long (maximum %d characters)", MaxTextLength)
	}
	return true, "Text content valid"
}

// SanitizeText HTML-escapes the text, strips NUL bytes and collapses
// whitespace so it is safe to store and echo back.
func SanitizeText(text string) string {
	out := html.EscapeString(text)
	out = strings.ReplaceAll(out, "\x00", "")
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
