package models

import "time"

// UploadRecord is one row of the upload history ledger.
type UploadRecord struct {
	ID          int64     `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	Filename    string    `db:"filename" json:"filename"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	RowCount    int       `db:"row_count" json:"row_count"`
	ColumnCount int       `db:"column_count" json:"column_count"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}
