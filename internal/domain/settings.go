package domain

import (
	"errors"
	"fmt"
	"time"
)

type TimeSlot struct {
	StartTime string `json:"start_time" yaml:"start_time" validate:"required,hhmm"`
	EndTime   string `json:"end_time" yaml:"end_time" validate:"required,hhmm"`
}

// SchoolSettings holds the school day layout every reservation is checked against.
// Days follow time.Weekday numbering: 0 = Sunday ... 6 = Saturday.
type SchoolSettings struct {
	StartTime         string     `json:"start_time" validate:"required,hhmm"`
	EndTime           string     `json:"end_time" validate:"required,hhmm"`
	ClassBlockMinutes int        `json:"class_block_minutes" validate:"gte=1"`
	OperatingDays     []int      `json:"operating_days" validate:"dive,gte=0,lte=6"`
	ClassBlocks       []TimeSlot `json:"class_blocks" validate:"dive"`
	Breaks            []TimeSlot `json:"breaks" validate:"dive"`
	ResourceTags      []string   `json:"resource_tags"`
	UpdatedAt         time.Time  `json:"updated_at,omitempty"`
}

func DefaultSettings() SchoolSettings {
	return SchoolSettings{
		StartTime:         "07:30",
		EndTime:           "17:10",
		ClassBlockMinutes: 50,
		OperatingDays:     []int{1, 2, 3, 4, 5},
		ClassBlocks: []TimeSlot{
			{StartTime: "07:30", EndTime: "08:20"},
			{StartTime: "08:20", EndTime: "09:10"},
			{StartTime: "09:30", EndTime: "10:20"},
			{StartTime: "10:20", EndTime: "11:10"},
			{StartTime: "11:10", EndTime: "12:00"},
			{StartTime: "13:20", EndTime: "14:10"},
			{StartTime: "14:10", EndTime: "15:00"},
			{StartTime: "15:20", EndTime: "16:10"},
			{StartTime: "16:10", EndTime: "17:00"},
		},
		Breaks: []TimeSlot{
			{StartTime: "09:10", EndTime: "09:30"},
			{StartTime: "12:00", EndTime: "13:20"},
			{StartTime: "15:00", EndTime: "15:20"},
		},
		ResourceTags: []string{"Sala de Aula", "Laboratório", "Audiovisual", "Reunião", "Estudo"},
	}
}

// WithDefaults fills fields that older stored rows may be missing.
func (s SchoolSettings) WithDefaults() SchoolSettings {
	d := DefaultSettings()
	if s.StartTime == "" {
		s.StartTime = d.StartTime
	}
	if s.EndTime == "" {
		s.EndTime = d.EndTime
	}
	if s.ClassBlockMinutes <= 0 {
		s.ClassBlockMinutes = d.ClassBlockMinutes
	}
	if s.OperatingDays == nil {
		s.OperatingDays = d.OperatingDays
	}
	if s.ClassBlocks == nil {
		s.ClassBlocks = d.ClassBlocks
	}
	if s.Breaks == nil {
		s.Breaks = d.Breaks
	}
	if s.ResourceTags == nil {
		s.ResourceTags = d.ResourceTags
	}
	return s
}

// CheckOrder verifies every HH:MM pair runs forward. Format is checked by the validator.
func (s SchoolSettings) CheckOrder() error {
	if err := checkPair(s.StartTime, s.EndTime); err != nil {
		return fmt.Errorf("school day: %w", err)
	}
	for i, b := range s.ClassBlocks {
		if err := checkPair(b.StartTime, b.EndTime); err != nil {
			return fmt.Errorf("class_blocks[%d]: %w", i, err)
		}
	}
	for i, b := range s.Breaks {
		if err := checkPair(b.StartTime, b.EndTime); err != nil {
			return fmt.Errorf("breaks[%d]: %w", i, err)
		}
	}
	return nil
}

func (s SchoolSettings) IsOperatingDay(w time.Weekday) bool {
	for _, d := range s.OperatingDays {
		if d == int(w) {
			return true
		}
	}
	return false
}

// Window returns the school day bounds on the calendar day of day, in loc.
func (s SchoolSettings) Window(day time.Time, loc *time.Location) (time.Time, time.Time, error) {
	open, err := At(day, s.StartTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	closeAt, err := At(day, s.EndTime, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return open, closeAt, nil
}

// Allows reports whether [start,end) lies on an operating day inside the school window.
func (s SchoolSettings) Allows(start, end time.Time, loc *time.Location) bool {
	local := start.In(loc)
	if !s.IsOperatingDay(local.Weekday()) {
		return false
	}
	open, closeAt, err := s.Window(local, loc)
	if err != nil {
		return false
	}
	return !start.Before(open) && !end.After(closeAt)
}

// At places an HH:MM clock in loc on the calendar date of day, as day's own
// location reads it. Pass dates from ParseDate or times already in loc.
func At(day time.Time, clock string, loc *time.Location) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	y, mo, d := day.Date()
	return time.Date(y, mo, d, h, m, 0, 0, loc), nil
}

var ErrInvalidClock = errors.New("invalid clock, want HH:MM")

// ParseClock parses a 24h "HH:MM" string.
func ParseClock(s string) (int, int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, ErrInvalidClock
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, ErrInvalidClock
	}
	return t.Hour(), t.Minute(), nil
}

func checkPair(start, end string) error {
	sh, sm, err := ParseClock(start)
	if err != nil {
		return err
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return err
	}
	if sh*60+sm >= eh*60+em {
		return fmt.Errorf("start %s must be before end %s", start, end)
	}
	return nil
}

var ErrInvalidDate = errors.New("invalid date, want YYYY-MM-DD")

// ParseDate parses a calendar date "YYYY-MM-DD". The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}
