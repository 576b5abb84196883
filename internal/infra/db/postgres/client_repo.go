package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/repository"
)

var _ repository.ClientRepository = (*ClientRepo)(nil)

// ClientRepo persists clients. A unique index on (agency_id, lower(email))
// backs the lookup-before-create invariant against concurrent creators;
// Create surfaces that race as domain.ErrAlreadyExists.
type ClientRepo struct {
	pool *pgxpool.Pool
}

func NewClientRepo(pool *pgxpool.Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

const clientCols = `id, agency_id, name, email, phone, bookings_count, created_at, updated_at`

func (r *ClientRepo) Create(ctx context.Context, qx repository.Tx, c *model.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	const q = `
INSERT INTO clients (` + clientCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, c.ID, c.AgencyID, c.Name, c.Email, c.Phone, c.BookingsCount, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *ClientRepo) Update(ctx context.Context, qx repository.Tx, c *model.Client) error {
	c.UpdatedAt = time.Now()
	const q = `UPDATE clients SET name=$2, phone=$3, bookings_count=$4, updated_at=$5 WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, c.ID, c.Name, c.Phone, c.BookingsCount, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ClientRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Client, error) {
	const q = `SELECT ` + clientCols + ` FROM clients WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanClient(ex.QueryRow(ctx, q, id))
}

func (r *ClientRepo) FindByAgencyEmail(ctx context.Context, qx repository.Tx, agencyID, email string) (*model.Client, error) {
	const q = `SELECT ` + clientCols + ` FROM clients WHERE agency_id=$1 AND email=lower($2);`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanClient(ex.QueryRow(ctx, q, agencyID, strings.TrimSpace(email)))
}

func (r *ClientRepo) IncrementBookings(ctx context.Context, qx repository.Tx, id string) error {
	const q = `UPDATE clients SET bookings_count = bookings_count + 1, updated_at = now() WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.AgencyID, &c.Name, &c.Email, &c.Phone, &c.BookingsCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
