// Package upload ties validation, storage and parsing together for one
// request: validate, name, write, mirror, record, then optionally parse.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/config"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/queue"
	"github.com/dharsanguruparan/ResumeDrop/internal/repository"
	"github.com/dharsanguruparan/ResumeDrop/internal/s3storage"
	"github.com/dharsanguruparan/ResumeDrop/internal/security"
	"github.com/dharsanguruparan/ResumeDrop/internal/storage"
)

// TextOriginalName is recorded as the original name of pasted job descriptions.
const TextOriginalName = "Text Job Description"

// ValidationError is returned when an upload fails the pipeline or a text
// submission fails its checks. Verdict is empty for text submissions.
type ValidationError struct {
	Reason  string
	Verdict *model.ValidationVerdict
}

func (e *ValidationError) Error() string { return e.Reason }

// Recorder files upload records against the user's profile.
type Recorder interface {
	AddUpload(ctx context.Context, userID string, record model.UploadRecord) error
}

// Auditor stores every validation verdict.
type Auditor interface {
	Record(ctx context.Context, entry repository.AuditEntry) error
}

// Mirror copies accepted files to object storage.
type Mirror interface {
	UploadRaw(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
}

// Documents persists processing results.
type Documents interface {
	Create(ctx context.Context, doc *repository.Document) error
	MarkCompleted(ctx context.Context, id, processedKey string, doc model.ExtractedDocument) error
	MarkEmpty(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, msg string) error
}

// Disk is the local upload root.
type Disk interface {
	Save(fileType model.FileType, name string, r io.Reader) (string, error)
	Metadata(path string) (storage.Metadata, error)
	Remove(path string) error
}

// Enqueuer schedules background parsing.
type Enqueuer interface {
	EnqueueParse(ctx context.Context, payload queue.ParsePayload) error
}

// Deps are the collaborators of a Service. Validator, Disk, Parser and
// Profiles are required; the rest are optional.
type Deps struct {
	Validator *security.Validator
	Names     *security.NameGenerator
	Disk      Disk
	Parser    *parsing.Orchestrator
	Profiles  Recorder
	Audit     Auditor
	Mirror    Mirror
	Documents Documents
	Queue     Enqueuer
	// Mode is one of config.ProcessInline, config.ProcessQueue or config.ProcessOff.
	Mode   string
	Logger zerolog.Logger
}

// Service handles uploads for the HTTP layer and the CLI.
type Service struct {
	deps   Deps
	now    func() time.Time
	logger zerolog.Logger
}

// NewService builds a Service.
func NewService(deps Deps) *Service {
	if deps.Names == nil {
		deps.Names = security.NewNameGenerator()
	}
	if deps.Mode == "" {
		deps.Mode = config.ProcessOff
	}
	return &Service{
		deps:   deps,
		now:    time.Now,
		logger: deps.Logger.With().Str("component", "upload").Logger(),
	}
}

// Request is one file upload.
type Request struct {
	UserID       string
	FileType     model.FileType
	Filename     string
	DeclaredMIME string
	Content      io.ReadSeeker
	// RemovePII applies to resume processing only.
	RemovePII bool
}

// Store validates and persists an uploaded file. Resumes are then parsed
// according to the configured mode.
func (s *Service) Store(ctx context.Context, req Request) (model.UploadResult, error) {
	verdict := s.deps.Validator.Validate(security.Candidate{
		Content:      req.Content,
		Filename:     req.Filename,
		DeclaredMIME: req.DeclaredMIME,
		UserID:       req.UserID,
	})
	s.audit(ctx, req, verdict)
	if !verdict.Accepted {
		return model.UploadResult{}, &ValidationError{Reason: verdict.Reason, Verdict: &verdict}
	}

	name := s.deps.Names.Generate(req.Filename, req.UserID)
	path, err := s.deps.Disk.Save(req.FileType, name, req.Content)
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("store upload: %w", err)
	}
	meta, err := s.deps.Disk.Metadata(path)
	if err != nil {
		if rmErr := s.deps.Disk.Remove(path); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("path", path).Msg("remove unrecorded upload")
		}
		return model.UploadResult{}, fmt.Errorf("store upload: %w", err)
	}

	var objectKey string
	if _, err := req.Content.Seek(0, io.SeekStart); err == nil {
		objectKey = s.mirror(ctx, req.UserID, req.FileType, name, req.Content, meta)
	}
	s.record(ctx, req.UserID, model.UploadRecord{
		FileType:     req.FileType,
		Filename:     name,
		OriginalName: req.Filename,
		FilePath:     path,
		FileSize:     meta.Size,
		MIMEType:     meta.MIMEType,
		UploadedAt:   s.now().UTC(),
	})

	result := model.UploadResult{
		Filename:     name,
		OriginalName: req.Filename,
		Size:         meta.Size,
		MIMEType:     meta.MIMEType,
		Path:         path,
	}
	if req.FileType != model.FileTypeResume {
		return result, nil
	}
	return s.process(ctx, req, result, objectKey)
}

// SubmitText validates, sanitises and stores a pasted job description.
func (s *Service) SubmitText(ctx context.Context, userID, text string) (model.UploadResult, error) {
	if strings.TrimSpace(text) == "" {
		return model.UploadResult{}, &ValidationError{Reason: "Job description text is required"}
	}
	if ok, msg := security.ValidateText(text); !ok {
		return model.UploadResult{}, &ValidationError{Reason: msg}
	}
	clean := security.SanitizeText(text)
	name := textFileName(userID, s.now())
	path, err := s.deps.Disk.Save(model.FileTypeJobDescriptionText, name, strings.NewReader(clean))
	if err != nil {
		return model.UploadResult{}, fmt.Errorf("store text: %w", err)
	}
	size := int64(len(clean))
	s.mirror(ctx, userID, model.FileTypeJobDescriptionText, name, strings.NewReader(clean), storage.Metadata{Size: size, MIMEType: "text/plain"})
	s.record(ctx, userID, model.UploadRecord{
		FileType:     model.FileTypeJobDescriptionText,
		Filename:     name,
		OriginalName: TextOriginalName,
		FilePath:     path,
		FileSize:     size,
		MIMEType:     "text/plain",
		UploadedAt:   s.now().UTC(),
	})
	return model.UploadResult{
		Filename:     name,
		OriginalName: TextOriginalName,
		Size:         size,
		MIMEType:     "text/plain",
		Path:         path,
	}, nil
}

// textFileName is jd_text_{user}_{millis}_{random}.txt. The random part
// keeps submissions within the same millisecond apart.
func textFileName(userID string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("jd_text_%s_%d_%s.txt", security.SafeBase(userID), now.UnixMilli(), suffix)
}

// Parse runs the orchestrator for an explicit parse request.
func (s *Service) Parse(ctx context.Context, path string, removePII bool) (model.ExtractedDocument, error) {
	return s.deps.Parser.Parse(ctx, path, removePII)
}

func (s *Service) process(ctx context.Context, req Request, result model.UploadResult, objectKey string) (model.UploadResult, error) {
	switch s.deps.Mode {
	case config.ProcessInline:
		doc, err := s.deps.Parser.Parse(ctx, result.Path, req.RemovePII)
		id := s.createDocument(ctx, req, result, objectKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", result.Filename).Msg("inline parse failed")
			s.finishDocument(ctx, id, err, model.ExtractedDocument{})
			result.DocumentID = id
			return result, nil
		}
		result.Processed = true
		result.PIIRemoved = doc.PIIRemoved
		result.DocumentID = id
		s.finishDocument(ctx, id, nil, doc)
	case config.ProcessQueue:
		id := s.createDocument(ctx, req, result, objectKey)
		if id == "" || s.deps.Queue == nil {
			return result, nil
		}
		err := s.deps.Queue.EnqueueParse(ctx, queue.ParsePayload{
			DocumentID: id,
			UserID:     req.UserID,
			FilePath:   result.Path,
			ObjectKey:  objectKey,
			RemovePII:  req.RemovePII,
		})
		if err != nil {
			s.logger.Error().Err(err).Str("document_id", id).Msg("enqueue parse")
			if err := s.deps.Documents.MarkFailed(ctx, id, "Failed to queue processing"); err != nil {
				s.logger.Error().Err(err).Str("document_id", id).Msg("update document row")
			}
		}
		result.DocumentID = id
	}
	return result, nil
}

func (s *Service) createDocument(ctx context.Context, req Request, result model.UploadResult, objectKey string) string {
	if s.deps.Documents == nil {
		return ""
	}
	doc := &repository.Document{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		FileType:   req.FileType,
		FileName:   result.Filename,
		FilePath:   result.Path,
		PIIRemoved: req.RemovePII,
	}
	if objectKey != "" {
		doc.ObjectKey = &objectKey
	}
	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		s.logger.Error().Err(err).Str("file", result.Filename).Msg("create document row")
		return ""
	}
	return doc.ID
}

func (s *Service) finishDocument(ctx context.Context, id string, parseErr error, doc model.ExtractedDocument) {
	if id == "" {
		return
	}
	var err error
	var perr *parsing.Error
	switch {
	case parseErr == nil:
		err = s.deps.Documents.MarkCompleted(ctx, id, "", doc)
	case errors.Is(parseErr, parsing.ErrNoContent):
		err = s.deps.Documents.MarkEmpty(ctx, id)
	case errors.As(parseErr, &perr):
		err = s.deps.Documents.MarkFailed(ctx, id, perr.Reason)
	default:
		err = s.deps.Documents.MarkFailed(ctx, id, "Failed to parse file")
	}
	if err != nil {
		s.logger.Error().Err(err).Str("document_id", id).Msg("update document row")
	}
}

// mirror copies the stored file to object storage and returns its key.
// Failures are logged and the upload still succeeds from local disk.
func (s *Service) mirror(ctx context.Context, userID string, fileType model.FileType, name string, r io.Reader, meta storage.Metadata) string {
	if s.deps.Mirror == nil {
		return ""
	}
	key := s3storage.RawObjectKey(userID, fileType, name)
	if err := s.deps.Mirror.UploadRaw(ctx, key, r, meta.Size, meta.MIMEType); err != nil {
		s.logger.Warn().Err(err).Str("object_key", key).Msg("mirror upload failed")
		return ""
	}
	return key
}

func (s *Service) record(ctx context.Context, userID string, rec model.UploadRecord) {
	if s.deps.Profiles == nil {
		return
	}
	if err := s.deps.Profiles.AddUpload(ctx, userID, rec); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Str("file", rec.Filename).Msg("profile update failed")
	}
}

func (s *Service) audit(ctx context.Context, req Request, verdict model.ValidationVerdict) {
	if s.deps.Audit == nil {
		return
	}
	err := s.deps.Audit.Record(ctx, repository.AuditEntry{
		UserID:       req.UserID,
		OriginalName: req.Filename,
		FileType:     req.FileType,
		Verdict:      verdict,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("write upload audit")
	}
}
