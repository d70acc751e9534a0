// Package parsing turns a stored upload into text: it confines the path to
// the upload root, runs the extractor and optionally redacts PII.
package parsing

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/security"
)

// Failure kinds. Use errors.Is to classify an error returned by Parse.
var (
	ErrUnsafePath  = errors.New("unsafe path")
	ErrInvalidFile = errors.New("invalid file")
	ErrExtraction  = errors.New("extraction failed")
	ErrNoContent   = errors.New("no content")
)

// Error is returned by Parse. Reason is safe to send to the client; Err holds
// the underlying cause, if any, for logging.
type Error struct {
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Redactor removes PII from extracted text.
type Redactor interface {
	Redact(text string) string
}

// Orchestrator parses files that live under root.
type Orchestrator struct {
	root      string
	extractor *extract.Extractor
	redactor  Redactor
	logger    zerolog.Logger
}

// New wires an Orchestrator. Relative paths passed to Parse are resolved
// against root.
func New(root string, extractor *extract.Extractor, redactor Redactor, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		root:      root,
		extractor: extractor,
		redactor:  redactor,
		logger:    logger.With().Str("component", "parser").Logger(),
	}
}

// Root returns the directory parsed files must live under.
func (o *Orchestrator) Root() string { return o.root }

// Parse extracts text from path. When removePII is set the text is passed
// through the redactor before it is returned.
func (o *Orchestrator) Parse(ctx context.Context, path string, removePII bool) (model.ExtractedDocument, error) {
	if path != "" && !filepath.IsAbs(path) {
		path = filepath.Join(o.root, path)
	}
	if !security.IsSafePath(path, o.root) {
		o.logger.Warn().Str("path", path).Msg("parse outside upload root refused")
		return model.ExtractedDocument{}, &Error{Kind: ErrUnsafePath, Reason: "Invalid file path"}
	}
	if _, err := o.extractor.Precheck(path); err != nil {
		return model.ExtractedDocument{}, &Error{Kind: ErrInvalidFile, Reason: err.Error()}
	}

	doc, err := o.extractor.Extract(ctx, path)
	if err != nil {
		var check *extract.CheckError
		if errors.As(err, &check) {
			return model.ExtractedDocument{}, &Error{Kind: ErrInvalidFile, Reason: check.Reason}
		}
		o.logger.Error().Err(err).Str("file", filepath.Base(path)).Msg("parse failed")
		return model.ExtractedDocument{}, &Error{Kind: ErrExtraction, Reason: "Failed to parse file", Err: err}
	}
	if strings.TrimSpace(doc.Text) == "" {
		return model.ExtractedDocument{}, &Error{Kind: ErrNoContent, Reason: "No text content found in file"}
	}
	if removePII && o.redactor != nil {
		doc.Text = o.redactor.Redact(doc.Text)
		doc.PIIRemoved = true
	}
	o.logger.Debug().
		Str("file", filepath.Base(path)).
		Str("format", doc.Format).
		Bool("pii_removed", doc.PIIRemoved).
		Int("chars", len(doc.Text)).
		Msg("parsed document")
	return doc, nil
}
