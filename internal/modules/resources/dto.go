package resources

import (
	"encoding/json"
	"fmt"
	"time"

	"schoolbooking/internal/domain"
)

// ResourceRequest is used for both create and update; update replaces every field.
type ResourceRequest struct {
	Name         string     `json:"name" validate:"required,min=3"`
	Type         string     `json:"type" validate:"required,min=3"`
	Location     string     `json:"location" validate:"required,min=3"`
	Capacity     int        `json:"capacity" validate:"min=1"`
	Equipment    StringList `json:"equipment"`
	Availability string     `json:"availability"`
	ImageURL     string     `json:"image_url" validate:"omitempty,url"`
	Tags         StringList `json:"tags"`
	Description  string     `json:"description"`
}

// StringList accepts either a JSON array of strings or one comma separated string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*l = domain.CleanList(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("want a list of strings or a comma separated string")
	}
	*l = domain.SplitList(s)
	return nil
}

type ListQuery struct {
	Type string `form:"type"`
	Q    string `form:"q"`
	Tags string `form:"tags"`
}

type BlockStatus struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Available     bool   `json:"available"`
	ReservationID int64  `json:"reservation_id,omitempty"`
}

type BusyInterval struct {
	ReservationID int64     `json:"reservation_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
}

type AvailabilityResponse struct {
	ResourceID int64          `json:"resource_id"`
	Date       string         `json:"date"`
	Closed     bool           `json:"closed"`
	Blocks     []BlockStatus  `json:"blocks"`
	Busy       []BusyInterval `json:"busy"`
}
