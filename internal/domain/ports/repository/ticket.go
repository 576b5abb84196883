package repository

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

type TicketRepository interface {
	Create(ctx context.Context, qx Tx, t *model.Ticket) error
	Update(ctx context.Context, qx Tx, t *model.Ticket) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Ticket, error)
	// FindByProcessingStatus lists tickets in the given status, oldest
	// first, for the chain repair worker.
	FindByProcessingStatus(ctx context.Context, qx Tx, status model.TicketProcessingStatus, limit int) ([]*model.Ticket, error)
}
