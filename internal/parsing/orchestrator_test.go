package parsing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/redact"
	"github.com/dharsanguruparan/ResumeDrop/internal/testutil"
)

func newOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	root := t.TempDir()
	return New(root, extract.New(zerolog.Nop()), redact.Redactor{}, zerolog.Nop()), root
}

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseRedactsWhenAsked(t *testing.T) {
	o, root := newOrchestrator(t)
	path := write(t, root, "resumes/cv.txt", []byte("Jane Doe\nEmail: jane@example.com\nGo engineer"))

	doc, err := o.Parse(context.Background(), path, true)
	require.NoError(t, err)
	assert.True(t, doc.PIIRemoved)
	assert.NotContains(t, doc.Text, "jane@example.com")
	assert.Contains(t, doc.Text, redact.EmailToken)

	doc, err = o.Parse(context.Background(), path, false)
	require.NoError(t, err)
	assert.False(t, doc.PIIRemoved)
	assert.Contains(t, doc.Text, "jane@example.com")
}

func TestParseResolvesRelativePaths(t *testing.T) {
	o, root := newOrchestrator(t)
	write(t, root, "resumes/cv.pdf", testutil.PDF("Distributed systems"))

	doc, err := o.Parse(context.Background(), "resumes/cv.pdf", false)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Distributed systems")
}

func TestParseFailureKinds(t *testing.T) {
	o, root := newOrchestrator(t)
	outside := write(t, t.TempDir(), "secret.txt", []byte("top secret text"))
	empty := write(t, root, "resumes/blank.txt", []byte("   \n\t "))
	unsupported := write(t, root, "resumes/photo.png", testutil.PNG())
	corrupt := write(t, root, "resumes/broken.pdf", []byte("%PDF-1.4 garbage"))

	tests := []struct {
		name   string
		path   string
		kind   error
		reason string
	}{
		{name: "outside root", path: outside, kind: ErrUnsafePath, reason: "Invalid file path"},
		{name: "traversal", path: filepath.Join(root, "..", filepath.Base(filepath.Dir(outside)), "secret.txt"), kind: ErrUnsafePath, reason: "Invalid file path"},
		{name: "missing", path: filepath.Join(root, "resumes", "nope.pdf"), kind: ErrUnsafePath, reason: "Invalid file path"},
		{name: "empty path", path: "", kind: ErrUnsafePath, reason: "Invalid file path"},
		{name: "unsupported", path: unsupported, kind: ErrInvalidFile, reason: "Unsupported file type: .png"},
		{name: "corrupt", path: corrupt, kind: ErrExtraction, reason: "Failed to parse file"},
		{name: "blank", path: empty, kind: ErrNoContent, reason: "No text content found in file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Parse(context.Background(), tt.path, true)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			var perr *Error
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.reason, perr.Reason)
		})
	}
}

func TestParseRefusesSymlinkOutOfRoot(t *testing.T) {
	o, root := newOrchestrator(t)
	target := write(t, t.TempDir(), "secret.txt", []byte("outside content that is long enough"))
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err := o.Parse(context.Background(), link, false)
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestParseHonoursCancelledContext(t *testing.T) {
	o, root := newOrchestrator(t)
	path := write(t, root, "cv.txt", []byte("some text"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Parse(ctx, path, false)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.ErrorIs(t, err, context.Canceled)
}
