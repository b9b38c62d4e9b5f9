package reservation

import (
	"context"

	"github.com/google/uuid"
	"github.com/marmoleria/backend/internal/domain/shared"
)

// ReservationFilter narrows reservation listings
type ReservationFilter struct {
	shared.Filter
	QuoteNumber string
	Status      Status
	Advisor     string
}

// ReservationRepository persists reservations
type ReservationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	FindAll(ctx context.Context, filter ReservationFilter) ([]Reservation, int64, error)
	FindByStatus(ctx context.Context, status Status) ([]Reservation, error)
	// SaveAll inserts the reservations of one create call in a single transaction
	SaveAll(ctx context.Context, reservations []*Reservation) error
	// Save updates a reservation, failing with CONCURRENCY_CONFLICT when the
	// stored version is not the one the reservation was loaded with
	Save(ctx context.Context, r *Reservation) error
}
