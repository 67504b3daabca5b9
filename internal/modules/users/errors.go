package users

import "errors"

var (
	ErrNotFound        = errors.New("user not found")
	ErrForbidden       = errors.New("forbidden")
	ErrEmailExists     = errors.New("email already exists")
	ErrInvalidRole     = errors.New("invalid role")
	ErrSelfDelete      = errors.New("you cannot delete your own account")
	ErrLastAdmin       = errors.New("at least one admin must remain")
	ErrWrongPassword   = errors.New("current password is incorrect")
	ErrPasswordTooWeak = errors.New("password must be at least 8 characters")
)
