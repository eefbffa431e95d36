package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateExport(ctx context.Context, rec *ExportRecord) error
	GetExport(ctx context.Context, id string) (*ExportRecord, error)
	ListExports(ctx context.Context, limit int) ([]*ExportRecord, error)
	CompleteExport(ctx context.Context, id string, sizeBytes int64) error
	FailExport(ctx context.Context, id, errorMsg string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateExport(ctx context.Context, rec *ExportRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (id, filename, path, content_type, size_bytes, duration_sec, segment_count, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Filename, rec.Path, rec.ContentType, rec.SizeBytes, rec.DurationSec,
		rec.SegmentCount, rec.Status, nullString(rec.Error), rec.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*ExportRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, filename, path, content_type, size_bytes, duration_sec, segment_count, status, error, created_at
		FROM exports WHERE id = ?
	`, id)
	return r.scanExport(row)
}

func (r *SQLiteRepository) scanExport(row *sql.Row) (*ExportRecord, error) {
	var rec ExportRecord
	var errMsg sql.NullString
	var createdAt string

	err := row.Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.ContentType, &rec.SizeBytes,
		&rec.DurationSec, &rec.SegmentCount, &rec.Status, &errMsg, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.Error = errMsg.String
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*ExportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, filename, path, content_type, size_bytes, duration_sec, segment_count, status, error, created_at
		FROM exports ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*ExportRecord
	for rows.Next() {
		var rec ExportRecord
		var errMsg sql.NullString
		var createdAt string

		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Path, &rec.ContentType, &rec.SizeBytes,
			&rec.DurationSec, &rec.SegmentCount, &rec.Status, &errMsg, &createdAt); err != nil {
			return nil, err
		}
		rec.Error = errMsg.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteRepository) CompleteExport(ctx context.Context, id string, sizeBytes int64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE exports SET status = ?, size_bytes = ?, error = NULL WHERE id = ?",
		ExportStatusCompleted, sizeBytes, id)
	return err
}

func (r *SQLiteRepository) FailExport(ctx context.Context, id, errorMsg string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE exports SET status = ?, error = ? WHERE id = ?",
		ExportStatusFailed, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
