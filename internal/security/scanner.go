package security

import (
	"regexp"
	"strings"
)

// ScanSkipped is the stage message used when the scanner itself failed.
const ScanSkipped = "Content scan skipped"

var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<script[\s>]`),
	regexp.MustCompile(`javascript\s*:`),
	regexp.MustCompile(`vbscript\s*:`),
	regexp.MustCompile(`\bon(load|error|click|mouseover)\s*=`),
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`document\.cookie`),
	regexp.MustCompile(`document\.write\s*\(`),
	regexp.MustCompile(`<\?php`),
	regexp.MustCompile(`<%[^>]{0,50}(exec|eval|system)`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`\bsystem\s*\(`),
	regexp.MustCompile(`shell_exec\s*\(`),
	regexp.MustCompile(`base64_decode\s*\(`),
}

// ScanContent looks for script and executable markers in the first
// ScanWindow bytes. Bytes that are not valid UTF-8 are dropped, so binary
// documents simply produce nothing to match. If the scan itself fails the
// file is let through.
func ScanContent(content []byte) (ok bool, msg string) {
	defer func() {
		if r := recover(); r != nil {
			ok, msg = true, ScanSkipped
		}
	}()
	if len(content) > ScanWindow {
		content = content[:ScanWindow]
	}
	text := strings.ToLower(strings.ToValidUTF8(string(content), ""))
	for _, re := range suspiciousPatterns {
		if re.MatchString(text) {
			return false, "File contains potentially unsafe content"
		}
	}
	return true, "No malicious content detected"
}
