package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/users"
	"schoolbooking/internal/repository"
)

// Service contains the login and registration logic
type Service struct {
	users     UserRepository
	registrar Registrar
	jwt       jwtService
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewService(users UserRepository, registrar Registrar, jwt jwtService, tokenTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		registrar: registrar,
		jwt:       jwt,
		tokenTTL:  tokenTTL,
		logger:    logger.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	u, err := s.registrar.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailExists) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("user registered")
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !users.CheckPassword(u.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *Service) Me(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) issue(u *domain.User) (*TokenResponse, error) {
	token, err := s.jwt.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	u.PasswordHash = ""
	return &TokenResponse{User: u, Token: token, ExpiresIn: int64(s.tokenTTL.Seconds())}, nil
}
