package security

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestNameGeneratorFormat(t *testing.T) {
	g := &NameGenerator{now: fixedClock(1700000000123)}
	name := g.Generate("My Resume (final).PDF", "user-1")

	sum := sha256.Sum256([]byte("My_Resume__final_" + "user-1" + "1700000000123"))
	want := "My_Resume__final__" + hex.EncodeToString(sum[:])[:8] + "_1700000000123.pdf"
	assert.Equal(t, want, name)
}

func TestNameGeneratorIsPathSafe(t *testing.T) {
	g := NewNameGenerator()
	pattern := regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}_[0-9a-f]{8}_[0-9]+(\.[a-z0-9]+)?$`)
	for _, in := range []string{"résumé.docx", "../../etc/passwd.pdf", strings.Repeat("x", 90) + ".doc", ".pdf", "a b\tc.pdf"} {
		name := g.Generate(in, "u")
		require.Regexp(t, pattern, name, "input %q", in)
		assert.NotContains(t, name, "..")
		assert.NotContains(t, name, "/")
	}
}

func TestNameGeneratorDiffersPerUser(t *testing.T) {
	g := &NameGenerator{now: fixedClock(42)}
	assert.NotEqual(t, g.Generate("cv.pdf", "alice"), g.Generate("cv.pdf", "bob"))
}

func TestSafeBaseTruncates(t *testing.T) {
	assert.Len(t, SafeBase(strings.Repeat("a", 80)), 50)
	assert.Equal(t, "file", SafeBase(""))
}
