package repository

import (
	"context"

	"gds-ingestion/internal/domain/model"
)

type ClientRepository interface {
	Create(ctx context.Context, qx Tx, c *model.Client) error
	Update(ctx context.Context, qx Tx, c *model.Client) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Client, error)
	// FindByAgencyEmail is the mandatory lookup-before-create for the
	// (agency, email) uniqueness invariant.
	FindByAgencyEmail(ctx context.Context, qx Tx, agencyID, email string) (*model.Client, error)
	// IncrementBookings bumps the booking counter of an existing client.
	IncrementBookings(ctx context.Context, qx Tx, id string) error
}
