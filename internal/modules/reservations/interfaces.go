package reservations

import (
	"context"
	"time"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/repository"
)

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	List(ctx context.Context, f repository.ReservationFilter) ([]domain.Reservation, error)
	ListOverlapping(ctx context.Context, resourceID int64, start, end time.Time) ([]domain.Reservation, error)
	Update(ctx context.Context, r *domain.Reservation) error
	Delete(ctx context.Context, id int64) error
	PurgeCancelled(ctx context.Context, before time.Time) (int64, error)
}

type ResourceReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Resource, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type SettingsProvider interface {
	Get(ctx context.Context) (*domain.SchoolSettings, error)
}

// Transactor runs fn in one database transaction carried by the ctx it passes.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(evt realtime.Event)
}
