package realtime

import (
	"time"

	"schoolbooking/internal/domain"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationDeleted   = "reservation.deleted"
	EventResourceCreated      = "resource.created"
	EventResourceUpdated      = "resource.updated"
	EventResourceDeleted      = "resource.deleted"
	EventSettingsUpdated      = "settings.updated"
)

// Event is pushed to websocket clients. ResourceID 0 marks events every client gets.
// When Public is set, clients other than admins and OwnerID receive Public instead of Data.
type Event struct {
	Type       string
	ResourceID int64
	OwnerID    int64
	Data       any
	Public     any
}

// ReservationView is what clients other than the owner and admins see of a reservation.
type ReservationView struct {
	ID         int64                    `json:"id"`
	ResourceID int64                    `json:"resource_id"`
	StartTime  time.Time                `json:"start_time"`
	EndTime    time.Time                `json:"end_time"`
	Status     domain.ReservationStatus `json:"status"`
}

// ReservationEvent carries r in full to its owner and admins, redacted to everyone else.
func ReservationEvent(typ string, r domain.Reservation) Event {
	return Event{
		Type:       typ,
		ResourceID: r.ResourceID,
		OwnerID:    r.UserID,
		Data:       r,
		Public: ReservationView{
			ID:         r.ID,
			ResourceID: r.ResourceID,
			StartTime:  r.StartTime,
			EndTime:    r.EndTime,
			Status:     r.Status,
		},
	}
}

// wireEvent is what goes over the socket.
type wireEvent struct {
	Type       string    `json:"type"`
	ResourceID int64     `json:"resource_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}

// clientMessage is what clients may send.
type clientMessage struct {
	Type       string `json:"type"`
	ResourceID int64  `json:"resource_id"`
}

type ackMessage struct {
	Type       string  `json:"type"`
	ResourceID int64   `json:"resource_id,omitempty"`
	Resources  []int64 `json:"resources,omitempty"`
	Error      string  `json:"error,omitempty"`
}
