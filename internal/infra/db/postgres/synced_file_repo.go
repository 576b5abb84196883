package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/repository"
)

var _ repository.SyncedFileRepository = (*SyncedFileRepo)(nil)

type SyncedFileRepo struct {
	pool *pgxpool.Pool
}

func NewSyncedFileRepo(pool *pgxpool.Pool) *SyncedFileRepo {
	return &SyncedFileRepo{pool: pool}
}

const syncedFileCols = `id, agency_id, name, fingerprint, file_url, ticket_count, synced_at`

func (r *SyncedFileRepo) Save(ctx context.Context, qx repository.Tx, f *model.SyncedFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.SyncedAt.IsZero() {
		f.SyncedAt = time.Now()
	}

	const q = `
INSERT INTO synced_files (` + syncedFileCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (agency_id, fingerprint) DO UPDATE SET
  name = EXCLUDED.name,
  file_url = EXCLUDED.file_url,
  ticket_count = EXCLUDED.ticket_count,
  synced_at = EXCLUDED.synced_at;`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, f.ID, f.AgencyID, f.Name, f.Fingerprint, f.FileURL, f.TicketCount, f.SyncedAt)
	return err
}

func (r *SyncedFileRepo) FindByFingerprint(ctx context.Context, qx repository.Tx, agencyID, fingerprint string) (*model.SyncedFile, error) {
	const q = `SELECT ` + syncedFileCols + ` FROM synced_files WHERE agency_id=$1 AND fingerprint=$2;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var f model.SyncedFile
	err = ex.QueryRow(ctx, q, agencyID, fingerprint).
		Scan(&f.ID, &f.AgencyID, &f.Name, &f.Fingerprint, &f.FileURL, &f.TicketCount, &f.SyncedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
