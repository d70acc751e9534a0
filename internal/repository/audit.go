package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// AuditEntry is one row of upload_audit: the verdict for every upload
// attempt, accepted or not.
type AuditEntry struct {
	ID           string
	UserID       string
	OriginalName string
	FileType     model.FileType
	Verdict      model.ValidationVerdict
	CreatedAt    time.Time
}

// AuditRepository writes validation verdicts.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository constructs a repository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Record inserts the verdict for one upload attempt.
func (r *AuditRepository) Record(ctx context.Context, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	verdict, err := json.Marshal(entry.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO upload_audit (id, user_id, original_name, file_type, accepted, failed_stage, reason, size, verdict, created_at)
		VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9,$10)
	`, entry.ID, entry.UserID, entry.OriginalName, entry.FileType, entry.Verdict.Accepted,
		string(entry.Verdict.FailedStage), entry.Verdict.Reason, entry.Verdict.Size, verdict, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// Recent returns the latest audit rows for a user, newest first. The stored
// verdict JSON is returned raw.
func (r *AuditRepository) Recent(ctx context.Context, userID string, limit int) ([]AuditRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, original_name, file_type, accepted, COALESCE(failed_stage,''), COALESCE(reason,''), size, verdict, created_at
		FROM upload_audit WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select audit: %w", err)
	}
	defer rows.Close()
	var out []AuditRow
	for rows.Next() {
		var row AuditRow
		if err := rows.Scan(&row.ID, &row.OriginalName, &row.FileType, &row.Accepted, &row.FailedStage, &row.Reason, &row.Size, &row.Verdict, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// AuditRow is the read model of upload_audit.
type AuditRow struct {
	ID           string          `json:"id"`
	OriginalName string          `json:"original_name"`
	FileType     model.FileType  `json:"file_type"`
	Accepted     bool            `json:"accepted"`
	FailedStage  string          `json:"failed_stage,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	Size         int64           `json:"size"`
	Verdict      json.RawMessage `json:"verdict"`
	CreatedAt    time.Time       `json:"created_at"`
}
