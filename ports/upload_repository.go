package ports

import (
	"context"

	"datastory/models"
)

// UploadRepository persists the upload history ledger.
type UploadRepository interface {
	Save(ctx context.Context, record *models.UploadRecord) error
	Recent(ctx context.Context, limit int) ([]models.UploadRecord, error)
}
