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

var _ repository.BookingRepository = (*BookingRepo)(nil)

type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

const bookingCols = `id, agency_id, ticket_id, client_id, reference, passenger_name, amount, currency, status, created_at`

func (r *BookingRepo) Create(ctx context.Context, qx repository.Tx, b *model.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	if b.Status == "" {
		b.Status = model.BookingConfirmed
	}

	const q = `
INSERT INTO bookings (` + bookingCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, b.ID, b.AgencyID, b.TicketID, b.ClientID, b.Reference, b.PassengerName, b.Amount, b.Currency, b.Status, b.CreatedAt)
	return err
}

func (r *BookingRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanBooking(ex.QueryRow(ctx, q, id))
}

func (r *BookingRepo) FindByTicket(ctx context.Context, qx repository.Tx, ticketID string) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE ticket_id=$1 ORDER BY created_at LIMIT 1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanBooking(ex.QueryRow(ctx, q, ticketID))
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.AgencyID, &b.TicketID, &b.ClientID, &b.Reference, &b.PassengerName, &b.Amount, &b.Currency, &b.Status, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
