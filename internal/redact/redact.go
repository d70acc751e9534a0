// Package redact strips personally identifying information from extracted
// document text, replacing each match with a typed placeholder.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder tokens written in place of redacted text.
const (
	EmailToken   = "[EMAIL_REMOVED]"
	PhoneToken   = "[PHONE_REMOVED]"
	NumberToken  = "[NUMBER_REMOVED]"
	URLToken     = "[URL_REMOVED]"
	AddressToken = "[ADDRESS_REMOVED]"
	// CollapsedToken replaces two or more adjacent placeholders.
	CollapsedToken = "[PII_REMOVED]"
)

type rule struct {
	re    *regexp.Regexp
	token string
}

// Rules run in this order; none of them can match a placeholder token.
var rules = []rule{
	{re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), token: EmailToken},
	{re: regexp.MustCompile(`(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`), token: PhoneToken},
	{re: regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}`), token: PhoneToken},
	{re: regexp.MustCompile(`\b\d{10,}\b`), token: NumberToken},
	{re: regexp.MustCompile(`https?://[^\s<>"'\[\]]+`), token: URLToken},
	{re: regexp.MustCompile(`(?i)\b\d+\s+(?:[a-z]+\s+){0,4}?(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|place|pl)\b\.?`), token: AddressToken},
}

const maxPasses = 8

var (
	whitespace = regexp.MustCompile(`\s+`)
	tokenRun   = regexp.MustCompile(`(?:\[[A-Z]+(?:_[A-Z]+)*_REMOVED\]\s*){2,}`)
)

// Clean returns text with emails, phone numbers, long digit runs, URLs and
// street addresses replaced. Whitespace is collapsed, and runs of adjacent
// placeholders become a single [PII_REMOVED]. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = normalize(text)
	// A replacement can open a word boundary for an earlier rule, so the
	// rules run until the text stops changing. Every match removes a digit,
	// an '@' or a scheme, which bounds the loop.
	for pass := 0; pass < maxPasses; pass++ {
		next := applyRules(text)
		if next == text {
			break
		}
		text = next
	}
	text = normalize(text)
	text = tokenRun.ReplaceAllLiteralString(text, CollapsedToken+" ")
	return strings.TrimSpace(text)
}

func applyRules(text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllLiteralString(text, r.token)
	}
	return text
}

func normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Redactor adapts Clean to the interface the parsing orchestrator expects.
type Redactor struct{}

// Redact implements parsing.Redactor.
func (Redactor) Redact(text string) string {
	return Clean(text)
}
