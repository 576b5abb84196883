package model

import "time"

// Client is unique per (AgencyID, Email). Lookup-before-create is
// mandatory everywhere a client is materialized; the postgres repo backs
// this with a unique index as a second line of defense.
type Client struct {
	ID       string
	AgencyID string
	Name     string
	Email    string
	Phone    string
	// BookingsCount is incremented every time an existing client is
	// reused for a new booking.
	BookingsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
