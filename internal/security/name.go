package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const maxBaseLength = 50

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NameGenerator derives storage names of the form
// {base}_{hash}_{millis}{ext}. Collisions are improbable, not impossible;
// callers needing a hard guarantee must check the store.
type NameGenerator struct {
	now func() time.Time
}

// NewNameGenerator returns a generator using the wall clock.
func NewNameGenerator() *NameGenerator {
	return &NameGenerator{now: time.Now}
}

// Generate returns a path-safe name for the original filename.
func (g *NameGenerator) Generate(original, userID string) string {
	now := time.Now
	if g != nil && g.now != nil {
		now = g.now
	}
	ext := extension(original)
	if unsafeNameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := SafeBase(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	millis := strconv.FormatInt(now().UnixMilli(), 10)
	sum := sha256.Sum256([]byte(base + userID + millis))
	return fmt.Sprintf("%s_%s_%s%s", base, hex.EncodeToString(sum[:])[:8], millis, ext)
}

// SafeBase replaces every character outside [A-Za-z0-9_-] and truncates the
// result to 50 characters.
func SafeBase(name string) string {
	base := unsafeNameChars.ReplaceAllString(name, "_")
	if len(base) > maxBaseLength {
		base = base[:maxBaseLength]
	}
	if base == "" {
		base = "file"
	}
	return base
}
