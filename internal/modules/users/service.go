package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/repository"
)

type Service struct {
	users     UserRepository
	publisher Publisher
	logger    zerolog.Logger
}

// NewService builds the users service. publisher may be nil.
func NewService(users UserRepository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		users:     users,
		publisher: publisher,
		logger:    logger.With().Str("component", "users").Logger(),
	}
}

// Create adds a user on behalf of an admin.
func (s *Service) Create(ctx context.Context, actor domain.Actor, req CreateUserRequest) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	role := domain.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		r, err := domain.ParseRole(req.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, req.Role)
		}
		role = r
	}
	u, err := s.create(ctx, req.Name, req.Email, req.Password, role, req.AvatarURL)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("actor_id", actor.UserID).Int64("user_id", u.ID).Str("role", string(role)).Msg("user created")
	return u, nil
}

// Register is public self registration. The role is always user.
func (s *Service) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.create(ctx, name, email, password, domain.RoleUser, "")
}

func (s *Service) create(ctx context.Context, name, email, password string, role domain.UserRole, avatar string) (*domain.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if avatar == "" {
		avatar = domain.DefaultAvatarURL(email)
	}
	u := &domain.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Role:         role,
		AvatarURL:    avatar,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.users.List(ctx)
}

// Get is allowed for admins and for the user themself.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error) {
	if !actor.CanAccess(id) {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, req UpdateUserRequest) (*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		u.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*req.AvatarURL)
		if u.AvatarURL == "" {
			u.AvatarURL = domain.DefaultAvatarURL(u.Email)
		}
	}
	if req.Role != nil {
		role, err := domain.ParseRole(*req.Role)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidRole, *req.Role)
		}
		if u.Role == domain.RoleAdmin && role != domain.RoleAdmin {
			if err := s.ensureOtherAdmin(ctx); err != nil {
				return nil, err
			}
		}
		u.Role = role
	}

	if err := s.users.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, mapRepoErr(err)
	}
	u.PasswordHash = ""
	return u, nil
}

// ChangePassword lets users change their own password (current password
// required) and admins change the password of non-admin users.
func (s *Service) ChangePassword(ctx context.Context, actor domain.Actor, id int64, req ChangePasswordRequest) error {
	if !actor.CanAccess(id) {
		return ErrForbidden
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}

	self := actor.UserID == id
	if !self && u.IsAdmin() {
		return ErrForbidden
	}
	if self && !CheckPassword(u.PasswordHash, req.CurrentPassword) {
		return ErrWrongPassword
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		return mapRepoErr(err)
	}
	s.logger.Info().Int64("actor_id", actor.UserID).Int64("user_id", id).Msg("password changed")
	return nil
}

func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	_, err := s.BulkDelete(ctx, actor, []int64{id})
	return err
}

// BulkDelete removes users and their reservations. The caller may not be in ids.
func (s *Service) BulkDelete(ctx context.Context, actor domain.Actor, ids []int64) (int64, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbidden
	}
	for _, id := range ids {
		if id == actor.UserID {
			return 0, ErrSelfDelete
		}
	}
	n, removed, err := s.users.Delete(ctx, ids...)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	s.logger.Info().
		Int64("actor_id", actor.UserID).
		Ints64("user_ids", ids).
		Int64("deleted", n).
		Int("reservations", len(removed)).
		Msg("users deleted")
	if s.publisher != nil {
		for _, r := range removed {
			s.publisher.Publish(realtime.ReservationEvent(realtime.EventReservationDeleted, r))
		}
	}
	return n, nil
}

// ResetPassword sets a new password for the account with email. When
// newPassword is empty a temporary one is generated and returned.
func (s *Service) ResetPassword(ctx context.Context, actor domain.Actor, email, newPassword string) (*ResetPasswordResponse, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.resetPassword(ctx, email, newPassword)
}

// ResetPasswordOffline is ResetPassword without an actor, for the admin CLI.
func (s *Service) ResetPasswordOffline(ctx context.Context, email, newPassword string) (*ResetPasswordResponse, error) {
	return s.resetPassword(ctx, email, newPassword)
}

func (s *Service) resetPassword(ctx context.Context, email, newPassword string) (*ResetPasswordResponse, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, mapRepoErr(err)
	}

	out := &ResetPasswordResponse{Email: u.Email}
	if newPassword == "" {
		newPassword, err = temporaryPassword(12)
		if err != nil {
			return nil, err
		}
		out.TemporaryPassword = newPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return nil, mapRepoErr(err)
	}
	s.logger.Info().Int64("user_id", u.ID).Msg("password reset")
	return out, nil
}

// CreateAdmin is used by the admin CLI and the seed command.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	return s.create(ctx, name, email, password, domain.RoleAdmin, "")
}

func (s *Service) ensureOtherAdmin(ctx context.Context) error {
	n, err := s.users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if n <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
