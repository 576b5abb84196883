package repository

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

type BookingRepository interface {
	Create(ctx context.Context, qx Tx, b *model.Booking) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Booking, error)
	FindByTicket(ctx context.Context, qx Tx, ticketID string) (*model.Booking, error)
}
