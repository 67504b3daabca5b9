package domain

import (
	"fmt"
	"strings"
	"time"
)

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ParseRole accepts the stored role names plus the labels used by the old dashboard.
func ParseRole(s string) (UserRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "user", "usuário", "usuario":
		return RoleUser, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// DefaultAvatarURL is used when a user is created without an avatar.
func DefaultAvatarURL(email string) string {
	return "https://i.pravatar.cc/150?u=" + strings.ToLower(strings.TrimSpace(email))
}

// Actor is the authenticated caller a service acts for.
type Actor struct {
	UserID int64
	Role   UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanAccess reports whether the actor may act on a record owned by ownerID.
func (a Actor) CanAccess(ownerID int64) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}
