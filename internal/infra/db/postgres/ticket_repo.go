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

var _ repository.TicketRepository = (*TicketRepo)(nil)

type TicketRepo struct {
	pool *pgxpool.Pool
}

func NewTicketRepo(pool *pgxpool.Pool) *TicketRepo {
	return &TicketRepo{pool: pool}
}

const ticketCols = `
id, agency_id, ticket_number, pnr, passenger_name, passenger_email,
airline, origin, destination, travel_date, base_fare, total_amount, currency,
amount_defaulted, client_id, booking_id, invoice_id,
processing_status, processing_error, source_file_id, created_at, updated_at`

func (r *TicketRepo) Create(ctx context.Context, qx repository.Tx, t *model.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	const q = `
INSERT INTO tickets (` + ticketCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22);`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		t.ID, t.AgencyID, t.TicketNumber, t.PNR, t.PassengerName, t.PassengerEmail,
		t.Airline, t.Origin, t.Destination, t.TravelDate, t.BaseFare, t.TotalAmount, t.Currency,
		t.AmountDefaulted, nullable(t.ClientID), nullable(t.BookingID), nullable(t.InvoiceID),
		t.ProcessingStatus, t.ProcessingError, nullable(t.SourceFileID), t.CreatedAt, t.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *TicketRepo) Update(ctx context.Context, qx repository.Tx, t *model.Ticket) error {
	t.UpdatedAt = time.Now()
	const q = `
UPDATE tickets SET
  passenger_email=$2, client_id=$3, booking_id=$4, invoice_id=$5,
  processing_status=$6, processing_error=$7, total_amount=$8, amount_defaulted=$9,
  updated_at=$10
WHERE id=$1;`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q,
		t.ID, t.PassengerEmail, nullable(t.ClientID), nullable(t.BookingID), nullable(t.InvoiceID),
		t.ProcessingStatus, t.ProcessingError, t.TotalAmount, t.AmountDefaulted, t.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *TicketRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanTicket(ex.QueryRow(ctx, q, id))
}

func (r *TicketRepo) FindByProcessingStatus(ctx context.Context, qx repository.Tx, status model.TicketProcessingStatus, limit int) ([]*model.Ticket, error) {
	const q = `SELECT ` + ticketCols + ` FROM tickets WHERE processing_status=$1 ORDER BY created_at LIMIT $2;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var t model.Ticket
	var clientID, bookingID, invoiceID, sourceFileID *string
	err := row.Scan(
		&t.ID, &t.AgencyID, &t.TicketNumber, &t.PNR, &t.PassengerName, &t.PassengerEmail,
		&t.Airline, &t.Origin, &t.Destination, &t.TravelDate, &t.BaseFare, &t.TotalAmount, &t.Currency,
		&t.AmountDefaulted, &clientID, &bookingID, &invoiceID,
		&t.ProcessingStatus, &t.ProcessingError, &sourceFileID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	t.ClientID = deref(clientID)
	t.BookingID = deref(bookingID)
	t.InvoiceID = deref(invoiceID)
	t.SourceFileID = deref(sourceFileID)
	return &t, nil
}

// nullable maps "" to NULL for optional foreign keys.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
