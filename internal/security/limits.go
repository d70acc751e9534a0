// Package security validates untrusted uploads before anything is written to
// disk: filename checks, magic-number and MIME agreement, a heuristic content
// scan, and generation of server-side storage names.
package security

import "sort"

const (
	MaxFileSize       = 10 << 20 // 10 MiB
	MaxFilenameLength = 100
	MinTextLength     = 50
	MaxTextLength     = 5000
	// ScanWindow bounds how much of a file the content scanner reads.
	ScanWindow = 50 * 1024
)

const (
	MIMEPDF  = "application/pdf"
	MIMEDoc  = "application/msword"
	MIMEDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEText = "text/plain"
)

// extensionOrder is the order extensions are listed in messages.
var extensionOrder = []string{".pdf", ".doc", ".docx"}

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
}

var allowedMIMETypes = map[string]struct{}{
	MIMEPDF:  {},
	MIMEDoc:  {},
	MIMEDocx: {},
}

// UploadRequirements is the static descriptor clients query before uploading.
type UploadRequirements struct {
	MaxFileSize       int64    `json:"max_file_size"`
	MaxFileSizeMB     float64  `json:"max_file_size_mb"`
	AllowedExtensions []string `json:"allowed_extensions"`
	AllowedMIMETypes  []string `json:"allowed_mime_types"`
	MaxFilenameLength int      `json:"max_filename_length"`
	TextMinLength     int      `json:"text_min_length"`
	TextMaxLength     int      `json:"text_max_length"`
}

// Requirements returns the upload constraints enforced by Validator.
func Requirements() UploadRequirements {
	return UploadRequirements{
		MaxFileSize:       MaxFileSize,
		MaxFileSizeMB:     float64(MaxFileSize) / (1 << 20),
		AllowedExtensions: sortedKeys(allowedExtensions),
		AllowedMIMETypes:  sortedKeys(allowedMIMETypes),
		MaxFilenameLength: MaxFilenameLength,
		TextMinLength:     MinTextLength,
		TextMaxLength:     MaxTextLength,
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
