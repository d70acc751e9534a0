package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTextBoundaries(t *testing.T) {
	tests := []struct {
		length int
		wantOK bool
		msg    string
	}{
		{length: 49, msg: "Text too short (minimum 50 characters)"},
		{length: 50, wantOK: true},
		{length: 5000, wantOK: true},
		{length: 5001, msg: "Text too long (maximum 5000 characters)"},
	}
	for _, tt := range tests {
		ok, msg := ValidateText(strings.Repeat("a", tt.length))
		assert.Equal(t, tt.wantOK, ok, "length %d", tt.length)
		if !tt.wantOK {
			assert.Equal(t, tt.msg, msg)
		}
	}

	ok, msg := ValidateText("   \n\t ")
	assert.False(t, ok)
	assert.Equal(t, "Text content is empty", msg)

	// Surrounding whitespace does not count toward the minimum.
	ok, _ = ValidateText("   " + strings.Repeat("b", 49) + "   ")
	assert.False(t, ok)
}

func TestSanitizeText(t *testing.T) {
	in := "  <b>Senior</b>\x00 engineer\n\n  needed & \"paid\"  "
	assert.Equal(t, "&lt;b&gt;Senior&lt;/b&gt; engineer needed &amp; &#34;paid&#34;", SanitizeText(in))
}

func TestRequirements(t *testing.T) {
	req := Requirements()
	assert.EqualValues(t, 10485760, req.MaxFileSize)
	assert.Equal(t, 10.0, req.MaxFileSizeMB)
	assert.Equal(t, []string{".doc", ".docx", ".pdf"}, req.AllowedExtensions)
	assert.Len(t, req.AllowedMIMETypes, 3)
	assert.Equal(t, 100, req.MaxFilenameLength)
	assert.Equal(t, 50, req.TextMinLength)
	assert.Equal(t, 5000, req.TextMaxLength)
}
