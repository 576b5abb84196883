package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"gds-ingestion/internal/domain"
	"gds-ingestion/internal/domain/model"
	"gds-ingestion/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

const invoiceCols = `id, agency_id, ticket_id, client_id, booking_id, number, status, currency, lines, total, created_at`

func (r *InvoiceRepo) Create(ctx context.Context, qx repository.Tx, inv *model.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	if inv.Status == "" {
		inv.Status = model.InvoiceDraft
	}
	if inv.Number == "" {
		inv.Number = fmt.Sprintf("INV-%s", inv.CreatedAt.Format("20060102-150405"))
	}
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return err
	}

	const q = `
INSERT INTO invoices (` + invoiceCols + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	ex, err := pick(r.pool, qx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q, inv.ID, inv.AgencyID, inv.TicketID, inv.ClientID, inv.BookingID, inv.Number, inv.Status, inv.Currency, lines, inv.Total, inv.CreatedAt)
	return err
}

func (r *InvoiceRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE id=$1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanInvoice(ex.QueryRow(ctx, q, id))
}

func (r *InvoiceRepo) FindByTicket(ctx context.Context, qx repository.Tx, ticketID string) (*model.Invoice, error) {
	const q = `SELECT ` + invoiceCols + ` FROM invoices WHERE ticket_id=$1 ORDER BY created_at LIMIT 1;`
	ex, err := pick(r.pool, qx)
	if err != nil {
		return nil, err
	}
	return scanInvoice(ex.QueryRow(ctx, q, ticketID))
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var inv model.Invoice
	var lines []byte
	err := row.Scan(&inv.ID, &inv.AgencyID, &inv.TicketID, &inv.ClientID, &inv.BookingID, &inv.Number, &inv.Status, &inv.Currency, &lines, &inv.Total, &inv.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &inv.Lines); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}
