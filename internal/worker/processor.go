// Package worker runs queued parse jobs: it extracts text from a stored
// upload, mirrors the result to object storage and records the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/queue"
	"github.com/dharsanguruparan/ResumeDrop/internal/s3storage"
)

// Documents is the subset of the documents repository the worker writes to.
type Documents interface {
	MarkProcessing(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, msg string) error
	MarkEmpty(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id, processedKey string, doc model.ExtractedDocument) error
}

// Objects is the object storage used for raw fallbacks and processed output.
type Objects interface {
	DownloadRaw(ctx context.Context, objectKey string) ([]byte, error)
	UploadProcessed(ctx context.Context, objectKey string, data []byte) error
}

// Parser extracts text from files under its root.
type Parser interface {
	Parse(ctx context.Context, path string, removePII bool) (model.ExtractedDocument, error)
	Root() string
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	docs    Documents
	objects Objects
	parser  Parser
	logger  zerolog.Logger
}

// NewProcessor constructs a worker processor. objects may be nil when no
// object storage is configured.
func NewProcessor(docs Documents, objects Objects, parser Parser, logger zerolog.Logger) *Processor {
	return &Processor{
		docs:    docs,
		objects: objects,
		parser:  parser,
		logger:  logger.With().Str("component", "worker").Logger(),
	}
}

// Handler registers the parse job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ParseDocumentTask, p.handleParse)
	return mux
}

func (p *Processor) handleParse(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.DecodeParsePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := p.logger.With().Str("document_id", payload.DocumentID).Logger()

	// transient errors are retried; the row is only marked failed on the
	// final attempt.
	transient := func(err error) error {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, ok := asynq.GetMaxRetry(ctx)
		if !ok || retried >= maxRetry {
			if err := p.docs.MarkFailed(ctx, payload.DocumentID, "Processing failed"); err != nil {
				log.Error().Err(err).Msg("mark document failed")
			}
		}
		log.Error().Err(err).Int("retry", retried).Msg("parse job failed")
		return err
	}

	if err := p.docs.MarkProcessing(ctx, payload.DocumentID); err != nil {
		return transient(err)
	}
	path, cleanup, err := p.localCopy(ctx, payload)
	if err != nil {
		return transient(err)
	}
	defer cleanup()

	doc, err := p.parser.Parse(ctx, path, payload.RemovePII)
	if err != nil {
		var perr *parsing.Error
		if !errors.As(err, &perr) {
			return transient(err)
		}
		if errors.Is(err, parsing.ErrNoContent) {
			log.Info().Msg("document has no text")
			if err := p.docs.MarkEmpty(ctx, payload.DocumentID); err != nil {
				return transient(err)
			}
			return nil
		}
		log.Warn().Err(err).Msg("document cannot be parsed")
		if err := p.docs.MarkFailed(ctx, payload.DocumentID, perr.Reason); err != nil {
			log.Error().Err(err).Msg("mark document failed")
		}
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	var processedKey string
	if p.objects != nil {
		rawKey := payload.ObjectKey
		if rawKey == "" {
			rawKey = s3storage.RawObjectKey(payload.UserID, model.FileTypeResume, filepath.Base(payload.FilePath))
		}
		processedKey = s3storage.ProcessedObjectKey(rawKey)
		if err := p.objects.UploadProcessed(ctx, processedKey, []byte(doc.Text)); err != nil {
			return transient(err)
		}
	}
	if err := p.docs.MarkCompleted(ctx, payload.DocumentID, processedKey, doc); err != nil {
		return transient(err)
	}
	log.Info().Str("format", doc.Format).Bool("pii_removed", doc.PIIRemoved).Int("chars", len(doc.Text)).Msg("document processed")
	return nil
}

// localCopy returns a path the parser can read. When the worker does not
// share the API's disk the raw object is fetched into the cache directory
// under the upload root.
func (p *Processor) localCopy(ctx context.Context, payload queue.ParsePayload) (string, func(), error) {
	noop := func() {}
	if _, err := os.Stat(payload.FilePath); err == nil || payload.ObjectKey == "" || p.objects == nil {
		return payload.FilePath, noop, nil
	}
	data, err := p.objects.DownloadRaw(ctx, payload.ObjectKey)
	if err != nil {
		return "", noop, err
	}
	dir := filepath.Join(p.parser.Root(), "cache")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", noop, fmt.Errorf("create cache dir: %w", err)
	}
	path := filepath.Join(dir, payload.DocumentID+filepath.Ext(payload.FilePath))
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", noop, fmt.Errorf("write cached copy: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}
