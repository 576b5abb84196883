package repository

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

type SyncedFileRepository interface {
	Save(ctx context.Context, qx Tx, f *model.SyncedFile) error
	// FindByFingerprint returns domain.ErrNotFound for unseen documents.
	FindByFingerprint(ctx context.Context, qx Tx, agencyID, fingerprint string) (*model.SyncedFile, error)
}
