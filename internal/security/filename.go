package security

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ValidateFilename rejects names that are empty, overlong, or that could be
// used for path traversal or header injection. The extension is checked
// separately by ValidateExtension.
func ValidateFilename(name string) (bool, string) {
	if name == "" {
		return false, "No filename provided"
	}
	if utf8.RuneCountInString(name) > MaxFilenameLength {
		return false, fmt.Sprintf("Filename too long (max %d characters)", MaxFilenameLength)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return false, "Invalid filename: path traversal detected"
	}
	if strings.ContainsRune(name, 0) {
		return false, "Invalid filename: null byte detected"
	}
	for _, r := range name {
		if r < 32 {
			return false, "Invalid filename: control characters detected"
		}
	}
	return true, "Filename valid"
}

// ValidateExtension accepts .pdf, .doc and .docx, case-insensitively.
func ValidateExtension(name string) (bool, string) {
	if _, ok := allowedExtensions[extension(name)]; !ok {
		return false, "File type not allowed. Allowed types: " + strings.Join(extensionOrder, ", ")
	}
	return true, "Extension valid"
}

// SanitizeFilename runs both filename checks, first failure wins.
func SanitizeFilename(name string) (bool, string) {
	if ok, msg := ValidateFilename(name); !ok {
		return false, msg
	}
	return ValidateExtension(name)
}

func extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
