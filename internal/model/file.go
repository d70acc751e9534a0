// Package model contains simple struct definitions shared across packages.
package model

import (
	"encoding/json"
	"time"
)

// FileType describes what an upload represents for the owning user. Declaring
// it as a named string keeps callers from passing arbitrary labels around.
type FileType string

const (
	FileTypeResume             FileType = "resume"
	FileTypeJobDescription     FileType = "job_description"
	FileTypeJobDescriptionText FileType = "job_description_text"
)

// Collection returns the upload history bucket the file type is filed under.
func (t FileType) Collection() string {
	if t == FileTypeResume {
		return "resumes"
	}
	return "job_descriptions"
}

// Stage names a single step of the upload validation pipeline.
type Stage string

const (
	StageFilename    Stage = "filename"
	StageExtension   Stage = "extension"
	StageSize        Stage = "size"
	StageSignature   Stage = "signature"
	StageMIME        Stage = "mime"
	StageContentScan Stage = "content_scan"
)

// Stages lists the pipeline steps in execution order.
var Stages = []Stage{StageFilename, StageExtension, StageSize, StageSignature, StageMIME, StageContentScan}

// Security reports whether a failure at this stage indicates hostile input
// rather than a plain input mistake.
func (s Stage) Security() bool {
	switch s {
	case StageSignature, StageMIME, StageContentScan:
		return true
	}
	return false
}

// StageResult is the outcome of one validation step.
type StageResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ValidationVerdict records every stage that ran for one candidate. Only
// stages up to and including the first failure are present.
type ValidationVerdict struct {
	Accepted bool
	// FailedStage is empty when Accepted is true.
	FailedStage Stage
	Reason      string
	// Detected is the file kind found by the signature check (pdf, doc, docx).
	Detected string
	MIMEType string
	Size     int64
	results  []stageEntry
}

type stageEntry struct {
	stage  Stage
	result StageResult
}

// Record appends a stage result. The pipeline calls it once per stage.
func (v *ValidationVerdict) Record(stage Stage, valid bool, msg string) {
	v.results = append(v.results, stageEntry{stage: stage, result: StageResult{Valid: valid, Message: msg}})
	if !valid && v.FailedStage == "" {
		v.FailedStage = stage
		v.Reason = msg
	}
}

// Result returns the recorded outcome for a stage.
func (v ValidationVerdict) Result(stage Stage) (StageResult, bool) {
	for _, e := range v.results {
		if e.stage == stage {
			return e.result, true
		}
	}
	return StageResult{}, false
}

// Ran lists the stages that were executed, in order.
func (v ValidationVerdict) Ran() []Stage {
	out := make([]Stage, 0, len(v.results))
	for _, e := range v.results {
		out = append(out, e.stage)
	}
	return out
}

// Details returns the per-stage map exposed to API clients.
func (v ValidationVerdict) Details() map[Stage]StageResult {
	out := make(map[Stage]StageResult, len(v.results))
	for _, e := range v.results {
		out[e.stage] = e.result
	}
	return out
}

// MarshalJSON renders the verdict as the per-stage map plus the overall flag.
func (v ValidationVerdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Accepted bool                  `json:"accepted"`
		Stages   map[Stage]StageResult `json:"stages"`
	}{Accepted: v.Accepted, Stages: v.Details()})
}

// ExtractedDocument is the text pulled out of a stored upload. It is handed
// to the caller and never retained by the parser.
type ExtractedDocument struct {
	Text   string `json:"text"`
	Format string `json:"format"`
	// Degraded marks best-effort output (legacy .doc).
	Degraded   bool `json:"degraded,omitempty"`
	PIIRemoved bool `json:"pii_removed"`
}

// UploadRecord is what gets filed against the user's profile after a
// successful upload. The profile store owns persistence.
type UploadRecord struct {
	FileType     FileType  `json:"file_type" bson:"file_type"`
	Filename     string    `json:"filename" bson:"filename"`
	OriginalName string    `json:"original_name" bson:"original_name"`
	FilePath     string    `json:"file_path" bson:"file_path"`
	FileSize     int64     `json:"file_size" bson:"file_size"`
	MIMEType     string    `json:"mime_type" bson:"mime_type"`
	UploadedAt   time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// UploadHistory groups a user's uploads the same way the profile document does.
type UploadHistory struct {
	Resumes         []UploadRecord `json:"resumes" bson:"resumes"`
	JobDescriptions []UploadRecord `json:"job_descriptions" bson:"job_descriptions"`
}

// UploadResult is returned to the HTTP layer after a file or text upload.
type UploadResult struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Size         int64  `json:"size"`
	MIMEType     string `json:"mime_type"`
	Processed    bool   `json:"processed"`
	PIIRemoved   bool   `json:"pii_removed"`
	DocumentID   string `json:"document_id,omitempty"`
	// Path is kept server-side only.
	Path string `json:"-"`
}

// DocumentStatus describes the processing lifecycle of a stored upload.
type DocumentStatus string

const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusEmpty      DocumentStatus = "empty"
	StatusFailed     DocumentStatus = "failed"
)
