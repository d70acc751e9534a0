// Package repository holds the SQL used by the API and the worker.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// ErrDocumentNotFound is returned by Get for unknown ids.
var ErrDocumentNotFound = errors.New("document not found")

// Document represents a row in the documents table.
type Document struct {
	ID           string               `json:"id"`
	UserID       string               `json:"-"`
	FileType     model.FileType       `json:"file_type"`
	FileName     string               `json:"filename"`
	FilePath     string               `json:"-"`
	ObjectKey    *string              `json:"-"`
	ProcessedKey *string              `json:"-"`
	Status       model.DocumentStatus `json:"status"`
	Format       string               `json:"format,omitempty"`
	Degraded     bool                 `json:"degraded,omitempty"`
	PIIRemoved   bool                 `json:"pii_removed"`
	Content      string               `json:"content,omitempty"`
	ErrorMessage *string              `json:"error,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// DocumentRepository wraps the documents table.
type DocumentRepository struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository constructs a repository.
func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// Create inserts a queued document before processing begins.
func (r *DocumentRepository) Create(ctx context.Context, doc *Document) error {
	now := time.Now().UTC()
	doc.Status = model.StatusQueued
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, user_id, file_type, file_name, file_path, object_key, status, pii_removed, content, error_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, doc.ID, doc.UserID, doc.FileType, doc.FileName, doc.FilePath, doc.ObjectKey, doc.Status, doc.PIIRemoved, "", nil, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get returns a document by id.
func (r *DocumentRepository) Get(ctx context.Context, id string) (*Document, error) {
	var (
		doc          Document
		objectKey    sql.NullString
		processedKey sql.NullString
		format       sql.NullString
		errorMsg     sql.NullString
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, file_type, file_name, file_path, object_key, processed_key, status, format,
			degraded, pii_removed, COALESCE(content,''), error_message, created_at, updated_at
		FROM documents WHERE id=$1
	`, id)
	err := row.Scan(&doc.ID, &doc.UserID, &doc.FileType, &doc.FileName, &doc.FilePath, &objectKey, &processedKey,
		&doc.Status, &format, &doc.Degraded, &doc.PIIRemoved, &doc.Content, &errorMsg, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("select document: %w", err)
	}
	doc.ObjectKey = nullable(objectKey)
	doc.ProcessedKey = nullable(processedKey)
	doc.ErrorMessage = nullable(errorMsg)
	doc.Format = format.String
	return &doc, nil
}

// MarkProcessing sets the status to processing.
func (r *DocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateStatus(ctx, id, model.StatusProcessing, nil, nil, nil)
}

// MarkFailed marks the processing attempt as failed and stores the message.
func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, msg string) error {
	return r.updateStatus(ctx, id, model.StatusFailed, nil, nil, &msg)
}

// MarkEmpty records that the file parsed but held no text.
func (r *DocumentRepository) MarkEmpty(ctx context.Context, id string) error {
	msg := "No text content found in file"
	return r.updateStatus(ctx, id, model.StatusEmpty, nil, nil, &msg)
}

// MarkCompleted stores the extracted text and, when set, the processed object key.
func (r *DocumentRepository) MarkCompleted(ctx context.Context, id, processedKey string, doc model.ExtractedDocument) error {
	var key *string
	if processedKey != "" {
		key = &processedKey
	}
	return r.updateStatus(ctx, id, model.StatusCompleted, key, &doc, nil)
}

func (r *DocumentRepository) updateStatus(ctx context.Context, id string, status model.DocumentStatus, processedKey *string, doc *model.ExtractedDocument, errorMsg *string) error {
	var (
		content, format *string
		degraded, pii   *bool
	)
	if doc != nil {
		content, format = &doc.Text, &doc.Format
		degraded, pii = &doc.Degraded, &doc.PIIRemoved
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status=$1,
			processed_key = COALESCE($2, processed_key),
			content = COALESCE($3, content),
			format = COALESCE($4, format),
			degraded = COALESCE($5, degraded),
			pii_removed = COALESCE($6, pii_removed),
			error_message = $7,
			updated_at=$8
		WHERE id=$9
	`, status, processedKey, content, format, degraded, pii, errorMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
