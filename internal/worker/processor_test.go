package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ResumeDrop/internal/extract"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
	"github.com/dharsanguruparan/ResumeDrop/internal/parsing"
	"github.com/dharsanguruparan/ResumeDrop/internal/queue"
	"github.com/dharsanguruparan/ResumeDrop/internal/redact"
	"github.com/dharsanguruparan/ResumeDrop/internal/testutil"
)

type fakeDocs struct {
	mu        sync.Mutex
	status    map[string]model.DocumentStatus
	messages  map[string]string
	completed map[string]model.ExtractedDocument
	keys      map[string]string
	failMark  error
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		status:    map[string]model.DocumentStatus{},
		messages:  map[string]string{},
		completed: map[string]model.ExtractedDocument{},
		keys:      map[string]string{},
	}
}

func (f *fakeDocs) MarkProcessing(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = model.StatusProcessing
	return nil
}

func (f *fakeDocs) MarkFailed(_ context.Context, id, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMark != nil {
		return f.failMark
	}
	f.status[id] = model.StatusFailed
	f.messages[id] = msg
	return nil
}

func (f *fakeDocs) MarkEmpty(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = model.StatusEmpty
	return nil
}

func (f *fakeDocs) MarkCompleted(_ context.Context, id, key string, doc model.ExtractedDocument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[id] = model.StatusCompleted
	f.completed[id] = doc
	f.keys[id] = key
	return nil
}

type fakeObjects struct {
	raw       map[string][]byte
	processed map[string][]byte
	failPut   bool
}

func (f *fakeObjects) DownloadRaw(_ context.Context, key string) ([]byte, error) {
	data, ok := f.raw[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func (f *fakeObjects) UploadProcessed(_ context.Context, key string, data []byte) error {
	if f.failPut {
		return errors.New("minio unavailable")
	}
	f.processed[key] = data
	return nil
}

func setup(t *testing.T, objects Objects) (*Processor, *fakeDocs, string) {
	t.Helper()
	root := t.TempDir()
	parser := parsing.New(root, extract.New(zerolog.Nop()), redact.Redactor{}, zerolog.Nop())
	docs := newFakeDocs()
	return NewProcessor(docs, objects, parser, zerolog.Nop()), docs, root
}

func task(t *testing.T, payload queue.ParsePayload) *asynq.Task {
	t.Helper()
	tk, err := queue.NewParseTask(payload)
	require.NoError(t, err)
	return tk
}

func writeUpload(t *testing.T, root, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(root, "resumes", name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestHandleParseCompletes(t *testing.T) {
	objects := &fakeObjects{processed: map[string][]byte{}}
	p, docs, root := setup(t, objects)
	path := writeUpload(t, root, "cv_1.pdf", testutil.PDF("Contact jane@example.com for Go work"))

	err := p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "d1", UserID: "u1", FilePath: path, RemovePII: true}))
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, docs.status["d1"])
	doc := docs.completed["d1"]
	assert.True(t, doc.PIIRemoved)
	assert.NotContains(t, doc.Text, "jane@example.com")
	assert.Equal(t, "resumes/u1/cv_1.txt", docs.keys["d1"])
	assert.Equal(t, doc.Text, string(objects.processed["resumes/u1/cv_1.txt"]))
}

func TestHandleParseWithoutObjectStore(t *testing.T) {
	p, docs, root := setup(t, nil)
	path := writeUpload(t, root, "cv_2.txt", []byte("plain resume text"))

	require.NoError(t, p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "d2", FilePath: path})))
	assert.Equal(t, model.StatusCompleted, docs.status["d2"])
	assert.Empty(t, docs.keys["d2"])
}

func TestHandleParseFetchesMissingFileFromObjectStore(t *testing.T) {
	objects := &fakeObjects{
		raw:       map[string][]byte{"resumes/u1/cv_3.txt": []byte("mirrored resume text")},
		processed: map[string][]byte{},
	}
	p, docs, root := setup(t, objects)
	path := filepath.Join(root, "resumes", "cv_3.txt")

	err := p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "d3", UserID: "u1", FilePath: path, ObjectKey: "resumes/u1/cv_3.txt"}))
	require.NoError(t, err)
	assert.Equal(t, "mirrored resume text", docs.completed["d3"].Text)
	_, statErr := os.Stat(filepath.Join(root, "cache", "d3.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHandleParsePermanentFailures(t *testing.T) {
	p, docs, root := setup(t, nil)
	empty := writeUpload(t, root, "blank.txt", []byte("   "))
	corrupt := writeUpload(t, root, "broken.pdf", []byte("%PDF-1.4 nonsense"))

	require.NoError(t, p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "empty", FilePath: empty})))
	assert.Equal(t, model.StatusEmpty, docs.status["empty"])

	err := p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "corrupt", FilePath: corrupt}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, model.StatusFailed, docs.status["corrupt"])
	assert.Equal(t, "Failed to parse file", docs.messages["corrupt"])

	err = p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "outside", FilePath: "/etc/passwd"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, "Invalid file path", docs.messages["outside"])

	err = p.handleParse(context.Background(), asynq.NewTask(queue.ParseDocumentTask, []byte("{}")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleParseTransientFailureIsRetried(t *testing.T) {
	objects := &fakeObjects{processed: map[string][]byte{}, failPut: true}
	p, docs, root := setup(t, objects)
	path := writeUpload(t, root, "cv_4.txt", []byte("resume text"))

	err := p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "d4", FilePath: path}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
	// Outside a worker there is no retry metadata, so the attempt counts as final.
	assert.Equal(t, model.StatusFailed, docs.status["d4"])
}

func TestHandleParseLogsFailedStatusUpdate(t *testing.T) {
	root := t.TempDir()
	docs := newFakeDocs()
	docs.failMark = errors.New("connection reset")
	var logs bytes.Buffer
	parser := parsing.New(root, extract.New(zerolog.Nop()), redact.Redactor{}, zerolog.Nop())
	p := NewProcessor(docs, nil, parser, zerolog.New(&logs))
	corrupt := writeUpload(t, root, "broken.pdf", []byte("%PDF-1.4 nonsense"))

	err := p.handleParse(context.Background(), task(t, queue.ParsePayload{DocumentID: "d5", FilePath: corrupt}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Contains(t, logs.String(), "mark document failed")
	assert.Contains(t, logs.String(), "connection reset")
}
