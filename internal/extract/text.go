package extract

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"
)

// textDecoder is one attempt in the TXT fallback chain. accept reports
// whether the decoded output is plausible for that encoding.
type textDecoder struct {
	name   string
	dec    func() *encoding.Decoder
	accept func(raw []byte, decoded string) bool
}

var textDecoders = []textDecoder{
	{
		name:   "utf-8",
		dec:    xunicode.UTF8.NewDecoder,
		accept: func(raw []byte, _ string) bool { return utf8.Valid(raw) },
	},
	{
		name: "utf-16",
		dec:  xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder,
		accept: func(raw []byte, decoded string) bool {
			return hasUTF16BOM(raw) && !strings.ContainsRune(decoded, utf8.RuneError)
		},
	},
	{
		name:   "latin-1",
		dec:    charmap.ISO8859_1.NewDecoder,
		accept: func(_ []byte, decoded string) bool { return !hasC1Controls(decoded) },
	},
	{
		name: "cp1252",
		dec:  charmap.Windows1252.NewDecoder,
		accept: func(_ []byte, decoded string) bool {
			return !hasC1Controls(decoded) && !strings.ContainsRune(decoded, utf8.RuneError)
		},
	},
}

// decodeText tries each encoding in order and falls back to lossy UTF-8,
// so it never fails.
func decodeText(raw []byte) (string, string) {
	for _, td := range textDecoders {
		out, err := td.dec().Bytes(raw)
		if err != nil {
			continue
		}
		if td.accept(raw, string(out)) {
			return strings.TrimPrefix(string(out), "\uFEFF"), td.name
		}
	}
	return strings.ToValidUTF8(string(raw), "\uFFFD"), "utf-8-replace"
}

func hasUTF16BOM(raw []byte) bool {
	return bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF})
}

func hasC1Controls(s string) bool {
	for _, r := range s {
		if r >= 0x80 && r <= 0x9F {
			return true
		}
	}
	return false
}

// minDocRun is the shortest printable run kept from a legacy .doc file.
const minDocRun = 4

// extractDOC pulls printable runs out of a legacy Word binary. The result is
// best effort: formatting tables and OLE directory names can leak through.
func extractDOC(raw []byte) string {
	// Word stores much of its text as UTF-16LE; dropping NULs turns the
	// ASCII subset of that into readable runs.
	cleaned := bytes.ReplaceAll(raw, []byte{0}, nil)
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(cleaned)
	if err != nil {
		decoded = cleaned
	}
	var (
		runs    []string
		current strings.Builder
	)
	flush := func() {
		run := strings.TrimSpace(current.String())
		current.Reset()
		if utf8.RuneCountInString(run) >= minDocRun && strings.IndexFunc(run, unicode.IsLetter) >= 0 {
			runs = append(runs, run)
		}
	}
	for _, r := range string(decoded) {
		if r == utf8.RuneError || (!unicode.IsPrint(r) && r != ' ' && r != '\t') {
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()
	return strings.Join(runs, "\n")
}
