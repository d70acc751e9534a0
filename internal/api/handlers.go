package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/dharsanguruparan/ResumeDrop/internal/auth"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/profile"
	"github.com/dharsanguruparan/ResumeDrop/internal/repository"
	"github.com/dharsanguruparan/ResumeDrop/internal/security"
	"github.com/dharsanguruparan/ResumeDrop/internal/upload"
)

// multipartOverhead covers boundaries, part headers and small form fields.
const multipartOverhead = 64 << 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"service": "file-parsing",
		"status":  "healthy",
	})
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"requirements": security.Requirements(),
	})
}

var uploadMessages = map[model.FileType]string{
	model.FileTypeResume:         "Resume uploaded successfully",
	model.FileTypeJobDescription: "Job description uploaded successfully",
}

func (s *Server) handleUpload(fileType model.FileType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.FromContext(r.Context())
		r.Body = http.MaxBytesReader(w, r.Body, security.MaxFileSize+multipartOverhead)
		mr, err := r.MultipartReader()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Expecting multipart form data")
			return
		}
		tmp, err := persistTemp(mr)
		if err != nil {
			var tooLarge *http.MaxBytesError
			switch {
			case errors.Is(err, errNoFile):
				respondError(w, http.StatusBadRequest, "No file provided")
			case errors.As(err, &tooLarge):
				respondError(w, http.StatusBadRequest, fmt.Sprintf("File too large (max %dMB)", security.MaxFileSize>>20))
			default:
				s.logger.Warn().Err(err).Msg("read multipart upload")
				respondError(w, http.StatusBadRequest, "Invalid upload")
			}
			return
		}
		defer tmp.cleanup()

		res, err := s.deps.Uploads.Store(r.Context(), upload.Request{
			UserID:       id.UserID,
			FileType:     fileType,
			Filename:     tmp.filename,
			DeclaredMIME: tmp.contentType,
			Content:      tmp.f,
			RemovePII:    tmp.removePII,
		})
		if err != nil {
			s.uploadError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": uploadMessages[fileType],
			"file":    res,
		})
	}
}

func (s *Server) handleTextJobDescription(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	res, err := s.deps.Uploads.SubmitText(r.Context(), id.UserID, body.Text)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Job description saved successfully",
		"file":    res,
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FilePath  string `json:"file_path"`
		RemovePII *bool  `json:"remove_pii"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.FilePath == "" {
		respondError(w, http.StatusBadRequest, "File path is required")
		return
	}
	removePII := body.RemovePII == nil || *body.RemovePII
	doc, err := s.deps.Uploads.Parse(r.Context(), body.FilePath, removePII)
	if err != nil {
		var perr *parsing.Error
		if !errors.As(err, &perr) {
			s.logger.Error().Err(err).Msg("parse")
			respondError(w, http.StatusInternalServerError, "Failed to parse file")
			return
		}
		body := errorBody{Error: perr.Reason}
		if perr.Err != nil && s.cfg.IsDevelopment() {
			body.Cause = perr.Err.Error()
		}
		respondJSON(w, parseStatus(err), body)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"text":        doc.Text,
		"length":      utf8.RuneCountInString(doc.Text),
		"format":      doc.Format,
		"degraded":    doc.Degraded,
		"pii_removed": doc.PIIRemoved,
	})
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	history, err := s.deps.Profiles.Uploads(r.Context(), id.UserID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("load upload history")
		respondError(w, http.StatusInternalServerError, "Failed to load uploads")
		return
	}
	if history.Resumes == nil {
		history.Resumes = []model.UploadRecord{}
	}
	if history.JobDescriptions == nil {
		history.JobDescriptions = []model.UploadRecord{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"uploads": history,
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if s.deps.Documents == nil {
		respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	doc, err := s.deps.Documents.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrDocumentNotFound) || (err == nil && doc.UserID != id.UserID) {
		respondError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("load document")
		respondError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	payload := map[string]interface{}{
		"success":  true,
		"document": doc,
	}
	if doc.ProcessedKey != nil && s.deps.Presigner != nil {
		url, err := s.deps.Presigner.PresignProcessedURL(r.Context(), *doc.ProcessedKey, s.cfg.SignedURLTTL)
		if err != nil {
			s.logger.Warn().Err(err).Str("document_id", doc.ID).Msg("presign processed text")
		} else {
			payload["processed_url"] = url
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
)

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}
	rows, err := s.deps.Audit.Recent(r.Context(), id.UserID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.UserID).Msg("load audit")
		respondError(w, http.StatusInternalServerError, "Failed to load audit log")
		return
	}
	if rows == nil {
		rows = []repository.AuditRow{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"entries": rows,
	})
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		body := errorBody{Error: verr.Reason}
		if verr.Verdict != nil {
			body.Details = verr.Verdict.Details()
		}
		respondJSON(w, http.StatusBadRequest, body)
		return
	}
	s.logger.Error().Err(err).Msg("upload failed")
	respondError(w, http.StatusInternalServerError, "Upload failed")
}

func parseStatus(err error) int {
	switch {
	case errors.Is(err, parsing.ErrUnsafePath):
		return http.StatusForbidden
	case errors.Is(err, parsing.ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, parsing.ErrNoContent):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

var errNoFile = errors.New("no file part")

type tempUpload struct {
	f           *os.File
	filename    string
	contentType string
	removePII   bool
}

func (t *tempUpload) cleanup() {
	t.f.Close()
	os.Remove(t.f.Name())
}

// rawFilename returns the filename exactly as the client sent it.
// Part.FileName strips directories, which would hide traversal attempts from
// the validator.
func rawFilename(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return part.FileName()
}

// persistTemp streams the "file" part to a temp file, reading at most one
// byte past the size limit so the validator can report oversize uploads.
// remove_pii defaults to true.
func persistTemp(mr *multipart.Reader) (*tempUpload, error) {
	tmp := &tempUpload{removePII: true}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if tmp.f != nil {
				tmp.cleanup()
			}
			return nil, err
		}
		switch part.FormName() {
		case "remove_pii":
			raw, _ := io.ReadAll(io.LimitReader(part, 16))
			if v, err := strconv.ParseBool(string(raw)); err == nil {
				tmp.removePII = v
			}
		case "file":
			if tmp.f != nil {
				break
			}
			f, err := os.CreateTemp("", "resumedrop-*")
			if err != nil {
				part.Close()
				return nil, fmt.Errorf("create temp file: %w", err)
			}
			tmp.f = f
			tmp.filename = rawFilename(part)
			tmp.contentType = part.Header.Get("Content-Type")
			n, err := io.Copy(f, io.LimitReader(part, security.MaxFileSize+1))
			if err != nil {
				part.Close()
				tmp.cleanup()
				return nil, fmt.Errorf("read file: %w", err)
			}
			if n > security.MaxFileSize {
				// The rest of the body is not needed: validation will fail on size.
				part.Close()
				return tmp.rewound()
			}
		}
		part.Close()
	}
	if tmp.f == nil {
		return nil, errNoFile
	}
	return tmp.rewound()
}

func (t *tempUpload) rewound() (*tempUpload, error) {
	if _, err := t.f.Seek(0, io.SeekStart); err != nil {
		t.cleanup()
		return nil, fmt.Errorf("rewind temp file: %w", err)
	}
	return t, nil
}
