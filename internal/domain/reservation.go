package domain

import (
	"fmt"
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationPending   ReservationStatus = "pending"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID          int64             `json:"id"`
	ResourceID  int64             `json:"resource_id"`
	UserID      int64             `json:"user_id"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time"`
	Purpose     string            `json:"purpose,omitempty"`
	Status      ReservationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`

	// filled by list queries
	ResourceName string `json:"resource_name,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}

// ParseReservationStatus accepts the stored names plus the labels used by the old dashboard.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "confirmed", "confirmada":
		return ReservationConfirmed, nil
	case "pending", "pendente":
		return ReservationPending, nil
	case "cancelled", "canceled", "cancelada":
		return ReservationCancelled, nil
	default:
		return "", fmt.Errorf("unknown reservation status %q", s)
	}
}

// IsActive reports whether the reservation still holds its slot.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationConfirmed
}

// Overlaps is the half-open interval test: [s1,e1) and [s2,e2) share at least one instant.
// Touching intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// FindConflict returns the first confirmed reservation on the candidate's resource
// whose interval overlaps the candidate. The candidate itself (same non-zero ID)
// is ignored so updates do not collide with their own previous version.
func FindConflict(candidate Reservation, existing []Reservation) *Reservation {
	for i := range existing {
		e := &existing[i]
		if candidate.ID != 0 && e.ID == candidate.ID {
			continue
		}
		if e.ResourceID != candidate.ResourceID || !e.IsActive() {
			continue
		}
		if Overlaps(candidate.StartTime, candidate.EndTime, e.StartTime, e.EndTime) {
			return e
		}
	}
	return nil
}
