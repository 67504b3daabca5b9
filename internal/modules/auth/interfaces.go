package auth

import (
	"context"

	"schoolbooking/internal/domain"
)

// UserRepository holds only the lookups auth needs.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// Registrar creates self-registered accounts. Implemented by users.Service.
type Registrar interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
}

type jwtService interface {
	GenerateToken(userID int64, role string) (string, error)
}
