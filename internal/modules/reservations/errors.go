package reservations

import (
	"errors"
	"fmt"

	"schoolbooking/internal/domain"
)

var (
	ErrNotFound          = errors.New("reservation not found")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("invalid reservation")
	ErrInvalidInterval   = errors.New("end time must be after start time")
	ErrInPast            = errors.New("reservation cannot start in the past")
	ErrClosedDay         = errors.New("the school is closed on that day")
	ErrOutsideHours      = errors.New("reservation must be within school hours")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyCancelled  = errors.New("reservation is already cancelled")
	ErrInvalidTransition = errors.New("status change not allowed")
	ErrConflict          = errors.New("resource is already reserved for that time")
	ErrBusy              = errors.New("resource is busy, try again")
)

// ConflictError names the confirmed reservation that blocked the request.
type ConflictError struct {
	Existing domain.Reservation
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s (reservation %d, %s - %s)", ErrConflict, e.Existing.ID,
		e.Existing.StartTime.Format("2006-01-02 15:04"), e.Existing.EndTime.Format("15:04"))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }
