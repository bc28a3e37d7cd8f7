package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"datastory/models"
	"datastory/ports"
)

// uploadRepository implements the UploadRepository interface
type uploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository creates a new upload history repository
func NewUploadRepository(db *sqlx.DB) ports.UploadRepository {
	return &uploadRepository{db: db}
}

// Connect opens a Postgres connection pool and ensures the history table
// exists.
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure uploads table: %w", err)
	}
	return db, nil
}

const schema = `CREATE TABLE IF NOT EXISTS uploads (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Save inserts a new upload record
func (r *uploadRepository) Save(ctx context.Context, record *models.UploadRecord) error {
	query := `INSERT INTO uploads (
		session_id, filename, content_hash, row_count, column_count, uploaded_at
	) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		record.SessionID, record.Filename, record.ContentHash,
		record.RowCount, record.ColumnCount, record.UploadedAt,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to save upload record: %w", err)
	}

	return nil
}

// Recent returns the newest upload records, most recent first
func (r *uploadRepository) Recent(ctx context.Context, limit int) ([]models.UploadRecord, error) {
	query := `SELECT id, session_id, filename, content_hash, row_count, column_count, uploaded_at
	FROM uploads ORDER BY uploaded_at DESC LIMIT $1`

	var records []models.UploadRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list upload records: %w", err)
	}

	return records, nil
}
