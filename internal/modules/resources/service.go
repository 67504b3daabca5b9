package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/pkg/validator"
	"schoolbooking/internal/repository"
)

type Service struct {
	resources    ResourceRepository
	reservations ReservationReader
	settings     SettingsProvider
	publisher    Publisher
	loc          *time.Location
	logger       zerolog.Logger
}

func NewService(
	resources ResourceRepository,
	reservations ReservationReader,
	settings SettingsProvider,
	publisher Publisher,
	loc *time.Location,
	logger zerolog.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		resources:    resources,
		reservations: reservations,
		settings:     settings,
		publisher:    publisher,
		loc:          loc,
		logger:       logger.With().Str("component", "resources").Logger(),
	}
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]domain.Resource, error) {
	return s.resources.List(ctx, repository.ResourceFilter{
		Type:  q.Type,
		Query: q.Q,
		Tags:  domain.SplitList(q.Tags),
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Resource, error) {
	r, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return r, nil
}

// Tags returns the sorted union of tags over all resources.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	all, err := s.resources.List(ctx, repository.ResourceFilter{})
	if err != nil {
		return nil, err
	}
	return domain.CollectTags(all), nil
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, req ResourceRequest) (*domain.Resource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	r, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.resources.Create(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info().Int64("actor_id", actor.UserID).Int64("resource_id", r.ID).Msg("resource created")
	s.publish(realtime.EventResourceCreated, r.ID, r)
	return r, nil
}

func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, req ResourceRequest) (*domain.Resource, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	existing, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if strings.TrimSpace(req.Availability) == "" {
		req.Availability = existing.Availability
	}

	r, err := fromRequest(req)
	if err != nil {
		return nil, err
	}
	r.ID = id
	r.CreatedAt = existing.CreatedAt
	if err := s.resources.Update(ctx, r); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info().Int64("actor_id", actor.UserID).Int64("resource_id", id).Msg("resource updated")
	s.publish(realtime.EventResourceUpdated, id, r)
	return r, nil
}

// Delete removes the resource and every reservation on it.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	removed, err := s.resources.Delete(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	s.logger.Info().
		Int64("actor_id", actor.UserID).
		Int64("resource_id", id).
		Int("reservations", len(removed)).
		Msg("resource deleted")
	if s.publisher != nil {
		for _, r := range removed {
			s.publisher.Publish(realtime.ReservationEvent(realtime.EventReservationDeleted, r))
		}
	}
	s.publish(realtime.EventResourceDeleted, id, map[string]int64{"id": id})
	return nil
}

// Availability lays the class blocks of date over the resource's confirmed
// reservations. Non-operating days come back closed with no blocks.
func (s *Service) Availability(ctx context.Context, id int64, date string) (*AvailabilityResponse, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if _, err := s.resources.GetByID(ctx, id); err != nil {
		return nil, mapRepoErr(err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	out := &AvailabilityResponse{
		ResourceID: id,
		Date:       day.Format("2006-01-02"),
		Blocks:     []BlockStatus{},
		Busy:       []BusyInterval{},
	}
	if !settings.IsOperatingDay(day.Weekday()) {
		out.Closed = true
		return out, nil
	}

	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	existing, err := s.reservations.ListOverlapping(ctx, id, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	for _, b := range settings.ClassBlocks {
		start, err := domain.At(day, b.StartTime, s.loc)
		if err != nil {
			continue
		}
		end, err := domain.At(day, b.EndTime, s.loc)
		if err != nil {
			continue
		}
		status := BlockStatus{StartTime: b.StartTime, EndTime: b.EndTime, Available: true}
		candidate := domain.Reservation{ResourceID: id, StartTime: start, EndTime: end}
		if c := domain.FindConflict(candidate, existing); c != nil {
			status.Available = false
			status.ReservationID = c.ID
		}
		out.Blocks = append(out.Blocks, status)
	}

	for _, r := range existing {
		out.Busy = append(out.Busy, BusyInterval{
			ReservationID: r.ID,
			Start:         r.StartTime,
			End:           r.EndTime,
			StartTime:     r.StartTime.In(s.loc).Format("15:04"),
			EndTime:       r.EndTime.In(s.loc).Format("15:04"),
		})
	}
	return out, nil
}

func fromRequest(req ResourceRequest) (*domain.Resource, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.TrimSpace(req.Type)
	req.Location = strings.TrimSpace(req.Location)
	req.ImageURL = strings.TrimSpace(req.ImageURL)
	if err := validator.Check(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	availability := strings.TrimSpace(req.Availability)
	if availability == "" {
		availability = domain.AvailabilityAvailable
	}
	equipment := []string(req.Equipment)
	if equipment == nil {
		equipment = []string{}
	}
	tags := []string(req.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &domain.Resource{
		Name:         req.Name,
		Type:         req.Type,
		Location:     req.Location,
		Capacity:     req.Capacity,
		Equipment:    equipment,
		Availability: availability,
		ImageURL:     req.ImageURL,
		Tags:         tags,
		Description:  strings.TrimSpace(req.Description),
	}, nil
}

func (s *Service) publish(typ string, resourceID int64, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.Event{Type: typ, ResourceID: resourceID, Data: data})
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
