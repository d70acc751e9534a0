package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ResumeDrop/internal/database"
	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// testPool connects to RESUMEDROP_TEST_DATABASE_URL or skips.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("RESUMEDROP_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RESUMEDROP_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.EnsureSchema(ctx, pool))
	return pool
}

func TestDocumentLifecycle(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewDocumentRepository(pool)

	doc := &Document{
		ID:       uuid.NewString(),
		UserID:   "u1",
		FileType: model.FileTypeResume,
		FileName: "cv_abcd1234_1.pdf",
		FilePath: "/data/resumes/cv_abcd1234_1.pdf",
	}
	require.NoError(t, repo.Create(ctx, doc))

	got, err := repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusQueued, got.Status)
	assert.Nil(t, got.ObjectKey)

	require.NoError(t, repo.MarkProcessing(ctx, doc.ID))
	require.NoError(t, repo.MarkCompleted(ctx, doc.ID, "processed/x.txt", model.ExtractedDocument{Text: "hello", Format: "pdf", PIIRemoved: true}))

	got, err = repo.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "pdf", got.Format)
	assert.True(t, got.PIIRemoved)
	require.NotNil(t, got.ProcessedKey)
	assert.Equal(t, "processed/x.txt", *got.ProcessedKey)
	assert.Nil(t, got.ErrorMessage)
}

func TestDocumentNotFound(t *testing.T) {
	pool := testPool(t)
	repo := NewDocumentRepository(pool)
	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	assert.ErrorIs(t, repo.MarkEmpty(context.Background(), uuid.NewString()), ErrDocumentNotFound)
}

func TestAuditRecord(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := NewAuditRepository(pool)
	user := uuid.NewString()

	var verdict model.ValidationVerdict
	verdict.Record(model.StageFilename, true, "Filename valid")
	verdict.Record(model.StageExtension, false, "File type not allowed. Allowed types: .pdf, .doc, .docx")
	require.NoError(t, repo.Record(ctx, AuditEntry{UserID: user, OriginalName: "x.exe", FileType: model.FileTypeResume, Verdict: verdict}))

	rows, err := repo.Recent(ctx, user, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Accepted)
	assert.Equal(t, "extension", rows[0].FailedStage)
	assert.Contains(t, string(rows[0].Verdict), `"extension"`)
}
