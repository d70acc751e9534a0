// Package extract turns stored uploads into plain text. PDF, DOCX and TXT
// are supported directly; legacy DOC goes through a degraded byte-level path.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// Format is a document format the extractor understands.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatDOC  Format = "doc"
	FormatTXT  Format = "txt"
)

// MaxParseSize is the largest file the extractor will open.
const MaxParseSize = 50 << 20

var formats = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".doc":  FormatDOC,
	".txt":  FormatTXT,
	".text": FormatTXT,
}

// CheckError is returned when a file fails the pre-parse check. Its message
// is safe to show to the caller.
type CheckError struct {
	Reason string
}

func (e *CheckError) Error() string { return e.Reason }

// ErrUnsupported is wrapped by Extract for formats it has no parser for.
var ErrUnsupported = errors.New("unsupported format")

// Extractor reads files from disk and dispatches on extension.
type Extractor struct {
	logger  zerolog.Logger
	maxSize int64
}

// New returns an Extractor with the default 50 MiB limit.
func New(logger zerolog.Logger) *Extractor {
	return &Extractor{
		logger:  logger.With().Str("component", "extractor").Logger(),
		maxSize: MaxParseSize,
	}
}

// Precheck verifies the file exists, is within the size limit and has a
// supported extension. It returns the detected format.
func (e *Extractor) Precheck(path string) (Format, error) {
	if path == "" {
		return "", &CheckError{Reason: "File path is required"}
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", &CheckError{Reason: "File does not exist"}
	}
	if err != nil || info.IsDir() {
		return "", &CheckError{Reason: "Cannot access file"}
	}
	if info.Size() > e.maxSize {
		return "", &CheckError{Reason: "File too large for parsing"}
	}
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := formats[ext]
	if !ok {
		return "", &CheckError{Reason: "Unsupported file type: " + ext}
	}
	return format, nil
}

// Extract runs Precheck and then the format-specific extractor. An empty
// Text with a nil error means the document parsed but held no text.
func (e *Extractor) Extract(ctx context.Context, path string) (model.ExtractedDocument, error) {
	format, err := e.Precheck(path)
	if err != nil {
		return model.ExtractedDocument{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.ExtractedDocument{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ExtractedDocument{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	doc := model.ExtractedDocument{Format: string(format)}
	switch format {
	case FormatPDF:
		doc.Text, err = extractPDF(data)
	case FormatDOCX:
		doc.Text, err = extractDOCX(data)
	case FormatTXT:
		var encoding string
		doc.Text, encoding = decodeText(data)
		doc.Text = strings.TrimSpace(doc.Text)
		e.logger.Debug().Str("file", filepath.Base(path)).Str("encoding", encoding).Msg("decoded text file")
	case FormatDOC:
		doc.Text = extractDOC(data)
		doc.Degraded = true
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, format)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("file", filepath.Base(path)).Str("format", string(format)).Msg("extraction failed")
		return model.ExtractedDocument{}, fmt.Errorf("extract %s: %w", format, err)
	}
	return doc, nil
}
