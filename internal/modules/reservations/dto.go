package reservations

import "time"

// CreateReservationRequest takes a calendar date plus HH:MM times read in the
// school timezone.
type CreateReservationRequest struct {
	ResourceID int64  `json:"resource_id" validate:"required,gt=0"`
	UserID     int64  `json:"user_id"`
	Date       string `json:"date" validate:"required,ymd"`
	StartTime  string `json:"start_time" validate:"required,hhmm"`
	EndTime    string `json:"end_time" validate:"required,hhmm"`
	Purpose    string `json:"purpose" validate:"max=500"`
}

// UpdateReservationRequest leaves nil fields unchanged.
type UpdateReservationRequest struct {
	ResourceID *int64  `json:"resource_id" validate:"omitempty,gt=0"`
	Date       *string `json:"date" validate:"omitempty,ymd"`
	StartTime  *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime    *string `json:"end_time" validate:"omitempty,hhmm"`
	Purpose    *string `json:"purpose" validate:"omitempty,max=500"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListQuery: status is a comma list ("all" disables the filter), from/to are
// YYYY-MM-DD (to is inclusive) or RFC3339 instants.
type ListQuery struct {
	Status     string `form:"status"`
	UserID     int64  `form:"user_id"`
	ResourceID int64  `form:"resource_id"`
	From       string `form:"from"`
	To         string `form:"to"`
}

type ConflictDetails struct {
	ReservationID int64     `json:"reservation_id"`
	ResourceID    int64     `json:"resource_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}
