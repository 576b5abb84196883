package repository

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

type InvoiceRepository interface {
	Create(ctx context.Context, qx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Invoice, error)
	FindByTicket(ctx context.Context, qx Tx, ticketID string) (*model.Invoice, error)
}
