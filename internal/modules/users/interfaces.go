package users

import (
	"context"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// Delete also removes the users' reservations and returns them.
	Delete(ctx context.Context, ids ...int64) (int64, []domain.Reservation, error)
	CountAdmins(ctx context.Context) (int64, error)
}

type Publisher interface {
	Publish(evt realtime.Event)
}
