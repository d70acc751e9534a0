package security

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// Candidate is one untrusted upload. Content must be seekable because every
// stage after the size check re-reads it from the start.
type Candidate struct {
	Content      io.ReadSeeker
	Filename     string
	DeclaredMIME string
	UserID       string
}

// Validator runs the upload pipeline:
// filename → extension → size → signature → mime → content_scan.
type Validator struct {
	logger zerolog.Logger
}

// NewValidator builds a Validator that reports security rejections to logger.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{logger: logger.With().Str("component", "upload_validator").Logger()}
}

// Validate inspects the candidate and returns the verdict. It never returns
// an error; read failures become a failed size stage. The content is rewound
// to offset zero before returning so the caller can persist it.
func (v *Validator) Validate(c Candidate) model.ValidationVerdict {
	var verdict model.ValidationVerdict
	if c.Content != nil {
		defer c.Content.Seek(0, io.SeekStart)
	}

	ok, msg := ValidateFilename(c.Filename)
	verdict.Record(model.StageFilename, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}
	ok, msg = ValidateExtension(c.Filename)
	verdict.Record(model.StageExtension, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}

	content, err := readBounded(c.Content, MaxFileSize)
	if err != nil {
		verdict.Record(model.StageSize, false, "Unable to read file")
		v.logger.Error().Err(err).Str("user_id", c.UserID).Msg("read upload")
		return verdict
	}
	verdict.Size = int64(len(content))
	ok, msg = checkSize(verdict.Size)
	verdict.Record(model.StageSize, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}

	kind, ok, msg := CheckSignature(content)
	verdict.Record(model.StageSignature, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}
	verdict.Detected = kind

	mime, ok, msg := CheckMIME(content)
	verdict.Record(model.StageMIME, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}
	verdict.MIMEType = mime

	ok, msg = ScanContent(content)
	if msg == ScanSkipped {
		v.logger.Warn().Str("user_id", c.UserID).Str("original_name", c.Filename).Msg("content scan failed, letting file through")
	}
	verdict.Record(model.StageContentScan, ok, msg)
	if !ok {
		return v.reject(verdict, c)
	}

	verdict.Accepted = true
	return verdict
}

func (v *Validator) reject(verdict model.ValidationVerdict, c Candidate) model.ValidationVerdict {
	event := v.logger.Debug()
	if verdict.FailedStage.Security() {
		event = v.logger.Warn()
	}
	event.
		Str("stage", string(verdict.FailedStage)).
		Str("reason", verdict.Reason).
		Str("user_id", c.UserID).
		Str("original_name", c.Filename).
		Str("declared_mime", c.DeclaredMIME).
		Int64("size", verdict.Size).
		Msg("upload rejected")
	return verdict
}

func checkSize(size int64) (bool, string) {
	if size == 0 {
		return false, "File is empty"
	}
	if size > MaxFileSize {
		return false, fmt.Sprintf("File too large (max %dMB)", MaxFileSize>>20)
	}
	return true, "Size valid"
}

// readBounded reads at most limit+1 bytes so an oversized stream is detected
// without buffering all of it.
func readBounded(r io.ReadSeeker, limit int64) ([]byte, error) {
	if r == nil {
		return nil, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return data, nil
}
