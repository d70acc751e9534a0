package redact

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "email", in: "Contact jane.doe+jobs@example.co.uk for details", want: "Contact [EMAIL_REMOVED] for details"},
		{name: "us phone dashes", in: "Call 555-123-4567 today", want: "Call [PHONE_REMOVED] today"},
		{name: "us phone parentheses", in: "Call (555) 123-4567 today", want: "Call [PHONE_REMOVED] today"},
		{name: "us phone dots", in: "Phone: 555.123.4567.", want: "Phone: [PHONE_REMOVED]."},
		{name: "international", in: "Mobile +44 20 7946 0958 (UK)", want: "Mobile [PHONE_REMOVED] (UK)"},
		{name: "long id", in: "Employee 123456789012 joined", want: "Employee [NUMBER_REMOVED] joined"},
		{name: "url", in: "See https://github.com/jane?tab=repos now", want: "See [URL_REMOVED] now"},
		{name: "address", in: "Lives at 221 Baker Street, London", want: "Lives at [ADDRESS_REMOVED], London"},
		{name: "address abbreviation", in: "Office: 1600 Pennsylvania Ave. Washington", want: "Office: [ADDRESS_REMOVED] Washington"},
		{name: "address case-insensitive", in: "12 elm ROAD", want: "[ADDRESS_REMOVED]"},
		{name: "whitespace collapsed", in: "  Senior\n\n   engineer\t\tGo  ", want: "Senior engineer Go"},
		{name: "adjacent tokens collapse", in: "Reach me: jane@example.com 555-123-4567 https://jane.dev", want: "Reach me: [PII_REMOVED]"},
		{name: "collapse mid sentence", in: "a jane@example.com (555) 123-4567 b", want: "a [PII_REMOVED] b"},
		{name: "short numbers kept", in: "5 years, 3 teams, 2019", want: "5 years, 3 teams, 2019"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

var corpus = []string{
	"",
	"plain text with nothing to hide",
	"Jane Doe | jane@doe.io | +1 (555) 010-9999 | https://jane.dev | 42 Wallaby Way Sydney",
	"IDs: 12345678901234567890123456789 and +123456789012345678901234567890",
	"555  123   4567 split by odd spacing",
	"[EMAIL_REMOVED] [PHONE_REMOVED] already redacted",
	"[PII_REMOVED] [URL_REMOVED]",
	"trailing tokens a@b.co 555-555-5555",
	"a@b.com@c.org weird email chain",
	"1 Dr 2 Main St 3 Oak Lane",
	"http://x.y/[bracket] and (555)123-4567x",
	"line one\r\nline two\n\n\tline three",
	"Call +44 20 7946 0958, or 020 7946 0958, or 02079460958.",
}

func TestCleanIsIdempotent(t *testing.T) {
	for _, in := range corpus {
		once := Clean(in)
		assert.Equal(t, once, Clean(once), "input %q", in)
	}
}

func TestPlaceholdersNeverMatchRules(t *testing.T) {
	for _, tok := range []string{EmailToken, PhoneToken, NumberToken, URLToken, AddressToken, CollapsedToken} {
		for _, r := range rules {
			assert.False(t, r.re.MatchString(tok), "%s matched %s", r.re, tok)
		}
	}
}

func TestCleanRemovesEveryEmail(t *testing.T) {
	emails := []string{"a@b.co", "first.last@sub.example.org", "x_y%z+tag@host-name.io", "UPPER@CASE.COM"}
	for _, email := range emails {
		out := Clean("prefix " + email + " suffix")
		assert.NotContains(t, out, email)
		assert.True(t, strings.Contains(out, EmailToken) || strings.Contains(out, CollapsedToken), out)
	}
}

func TestCleanLeavesCleanTextAlone(t *testing.T) {
	in := "Experienced Go developer. Built distributed systems at scale for 8 years."
	out := Clean(in)
	assert.Equal(t, in, out)
	phone := regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	assert.False(t, phone.MatchString(out))
}

func TestRedactorDelegatesToClean(t *testing.T) {
	assert.Equal(t, "[EMAIL_REMOVED]", Redactor{}.Redact("me@example.com"))
}

func TestCleanCatchesNumbersExposedByEarlierReplacement(t *testing.T) {
	in := "+1 2 3 456789012555-123-4567"
	out := Clean(in)
	assert.NotContains(t, out, "4567")
	assert.Equal(t, out, Clean(out))
}
