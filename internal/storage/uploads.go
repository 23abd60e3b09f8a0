package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Malnati/wa-fin-ctrl-sub000/constants"
)

// UploadRecord is one row of upload/diagnosis bookkeeping.
type UploadRecord struct {
	ID         uuid.UUID
	Filename   string
	MediaType  string
	SizeBytes  int64
	StoredPath string
	FileURL    string
	ReportURL  string
	Route      constants.RoutePath
	Provenance constants.Provenance
	Diagnosis  string
	SentRaw    bool
	Status     constants.UploadStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const uploadsSchema = `
CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	media_type  TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL,
	stored_path TEXT NOT NULL,
	file_url    TEXT NOT NULL,
	report_url  TEXT NOT NULL DEFAULT '',
	route       TEXT NOT NULL DEFAULT '',
	provenance  TEXT NOT NULL DEFAULT '',
	diagnosis   TEXT NOT NULL DEFAULT '',
	sent_raw    INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads(created_at);
`

// UploadStore is the SQLite-backed bookkeeping store.
type UploadStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenUploadStore opens (creating if needed) the bookkeeping database.
func OpenUploadStore(ctx context.Context, path string, logger *slog.Logger) (*UploadStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, uploadsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate uploads schema: %w", err)
	}
	logger.Info("storage.uploads.open", "path", path)
	return &UploadStore{db: db, logger: logger}, nil
}

func (s *UploadStore) Close() error { return s.db.Close() }

// Insert writes a completed bookkeeping row.
func (s *UploadStore) Insert(ctx context.Context, rec *UploadRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads
			(id, filename, media_type, size_bytes, stored_path, file_url,
			 report_url, route, provenance, diagnosis, sent_raw, status,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Filename, rec.MediaType, rec.SizeBytes,
		rec.StoredPath, rec.FileURL, rec.ReportURL, string(rec.Route),
		string(rec.Provenance), rec.Diagnosis, boolToInt(rec.SentRaw),
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID loads one bookkeeping row.
func (s *UploadStore) GetByID(ctx context.Context, id uuid.UUID) (*UploadRecord, error) {
	row := s.db.QueryRowContext(ctx, selectUploads+` WHERE id = ?`, id.String())
	rec, err := scanUpload(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("upload %s: not found", id)
	}
	return rec, err
}

// List returns rows newest-first. limit <= 0 means no limit.
func (s *UploadStore) List(ctx context.Context, limit int) ([]*UploadRecord, error) {
	query := selectUploads + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*UploadRecord
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

const selectUploads = `
	SELECT id, filename, media_type, size_bytes, stored_path, file_url,
	       report_url, route, provenance, diagnosis, sent_raw, status,
	       created_at, updated_at
	FROM uploads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*UploadRecord, error) {
	var (
		rec              UploadRecord
		id, route        string
		provenance, stat string
		sentRaw          int
	)
	err := row.Scan(&id, &rec.Filename, &rec.MediaType, &rec.SizeBytes,
		&rec.StoredPath, &rec.FileURL, &rec.ReportURL, &route, &provenance,
		&rec.Diagnosis, &sentRaw, &stat, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt upload id %q: %w", id, err)
	}
	rec.Route = constants.RoutePath(route)
	rec.Provenance = constants.Provenance(provenance)
	rec.Status = constants.UploadStatus(stat)
	rec.SentRaw = sentRaw != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
