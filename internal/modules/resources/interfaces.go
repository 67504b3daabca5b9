package resources

import (
	"context"
	"time"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/repository"
)

type ResourceRepository interface {
	Create(ctx context.Context, r *domain.Resource) error
	GetByID(ctx context.Context, id int64) (*domain.Resource, error)
	List(ctx context.Context, f repository.ResourceFilter) ([]domain.Resource, error)
	Update(ctx context.Context, r *domain.Resource) error
	// Delete also removes the resource's reservations and returns them.
	Delete(ctx context.Context, id int64) ([]domain.Reservation, error)
}

// ReservationReader is the read side availability needs.
type ReservationReader interface {
	ListOverlapping(ctx context.Context, resourceID int64, start, end time.Time) ([]domain.Reservation, error)
}

type SettingsProvider interface {
	Get(ctx context.Context) (*domain.SchoolSettings, error)
}

type Publisher interface {
	Publish(evt realtime.Event)
}
