package repository

import (
	"context"
	"strings"
	"time"

	"schoolbooking/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;not null"`
	Email        string    `gorm:"column:email;not null;uniqueIndex:idx_users_email"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Role         string    `gorm:"column:role;not null;default:user"`
	AvatarURL    *string   `gorm:"column:avatar_url"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var avatar string
	if m.AvatarURL != nil {
		avatar = *m.AvatarURL
	}

	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.UserRole(m.Role),
		AvatarURL:    avatar,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var avatar *string
	if u.AvatarURL != "" {
		v := u.AvatarURL
		avatar = &v
	}

	return userModel{
		ID:           u.ID,
		Name:         strings.TrimSpace(u.Name),
		Email:        normalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		AvatarURL:    avatar,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		return mapError(err)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := conn(ctx, r.db).
		Where("email = ?", normalizeEmail(email)).
		First(&m)
	if tx.Error != nil {
		return nil, mapError(tx.Error)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	if err := conn(ctx, r.db).First(&m, id).Error; err != nil {
		return nil, mapError(err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var rows []userModel
	if err := conn(ctx, r.db).Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainUser(m))
	}
	return out, nil
}

// Update writes profile fields. The password hash is left alone.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := conn(ctx, r.db).Model(&userModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"name":       m.Name,
			"email":      m.Email,
			"role":       m.Role,
			"avatar_url": m.AvatarURL,
			"updated_at": time.Now().UTC(),
		})
	if tx.Error != nil {
		return mapError(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tx := conn(ctx, r.db).Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes users and their reservations. It returns how many users were
// deleted and the reservations removed with them.
func (r *UserRepository) Delete(ctx context.Context, ids ...int64) (int64, []domain.Reservation, error) {
	if len(ids) == 0 {
		return 0, nil, nil
	}
	var (
		deleted int64
		removed []domain.Reservation
	)
	err := NewTransactor(r.db).InTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		var err error
		if removed, err = deleteReservationsWhere(db, "user_id IN ?", ids); err != nil {
			return err
		}
		tx := db.Where("id IN ?", ids).Delete(&userModel{})
		if tx.Error != nil {
			return tx.Error
		}
		if tx.RowsAffected == 0 {
			return ErrNotFound
		}
		deleted = tx.RowsAffected
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return deleted, removed, nil
}

func (r *UserRepository) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&userModel{}).Where("role = ?", string(domain.RoleAdmin)).Count(&n).Error
	return n, err
}
