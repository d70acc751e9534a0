package security

import (
	"bytes"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// signature is a magic-number prefix and the file kind it identifies.
type signature struct {
	magic []byte
	kind  string
}

var signatures = []signature{
	{magic: []byte("%PDF"), kind: "pdf"},
	{magic: []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, kind: "doc"}, // OLE compound document
	{magic: []byte{0x50, 0x4B, 0x03, 0x04}, kind: "docx"},                         // zip container
}

// minSignatureBytes is the longest magic number we compare against.
const minSignatureBytes = 8

// CheckSignature matches the head of the content against the known magic
// numbers. The filename plays no part in the decision.
func CheckSignature(head []byte) (kind string, ok bool, msg string) {
	if len(head) < minSignatureBytes {
		return "", false, "File too small to validate"
	}
	for _, sig := range signatures {
		if bytes.HasPrefix(head, sig.magic) {
			return sig.kind, true, fmt.Sprintf("Valid %s file signature", sig.kind)
		}
	}
	return "", false, "Invalid file signature"
}

// CheckMIME sniffs the content type independently of the magic table. A
// detector panic is treated as a failure.
func CheckMIME(head []byte) (detected string, ok bool, msg string) {
	defer func() {
		if r := recover(); r != nil {
			detected, ok, msg = "", false, "MIME type validation failed"
		}
	}()
	m := mimetype.Detect(head)
	detected = m.String()
	for allowed := range allowedMIMETypes {
		if m.Is(allowed) {
			return allowed, true, "Valid MIME type: " + allowed
		}
	}
	return detected, false, "Invalid MIME type: " + detected
}

// ValidateContent runs the signature and MIME checks; both must pass.
func ValidateContent(head []byte) (kind, mime string, ok bool, msg string) {
	kind, ok, msg = CheckSignature(head)
	if !ok {
		return "", "", false, msg
	}
	mime, ok, msg = CheckMIME(head)
	if !ok {
		return kind, mime, false, msg
	}
	return kind, mime, true, msg
}
