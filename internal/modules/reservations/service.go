package reservations

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/metrics"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/pkg/lock"
	"schoolbooking/internal/pkg/validator"
	"schoolbooking/internal/repository"
)

type Deps struct {
	Reservations ReservationRepository
	Resources    ResourceReader
	Users        UserReader
	Settings     SettingsProvider
	Tx           Transactor
	Locker       lock.Locker
	Publisher    Publisher
	Location     *time.Location
	Logger       zerolog.Logger
}

type Service struct {
	reservations ReservationRepository
	resources    ResourceReader
	users        UserReader
	settings     SettingsProvider
	tx           Transactor
	locker       lock.Locker
	publisher    Publisher
	loc          *time.Location
	logger       zerolog.Logger
	now          func() time.Time
}

func NewService(d Deps) *Service {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	locker := d.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Service{
		reservations: d.Reservations,
		resources:    d.Resources,
		users:        d.Users,
		settings:     d.Settings,
		tx:           d.Tx,
		locker:       locker,
		publisher:    d.Publisher,
		loc:          loc,
		logger:       d.Logger.With().Str("component", "reservations").Logger(),
		now:          time.Now,
	}
}

func (s *Service) Create(ctx context.Context, actor domain.Actor, req CreateReservationRequest) (*domain.Reservation, error) {
	if err := validator.Check(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	ownerID := actor.UserID
	if req.UserID != 0 && req.UserID != actor.UserID {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		ownerID = req.UserID
	}

	start, end, err := s.interval(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.checkSchedule(ctx, req.ResourceID, start, end); err != nil {
		return nil, err
	}

	res := &domain.Reservation{
		ResourceID: req.ResourceID,
		UserID:     ownerID,
		StartTime:  start,
		EndTime:    end,
		Purpose:    strings.TrimSpace(req.Purpose),
		Status:     domain.ReservationConfirmed,
	}
	err = s.guarded(ctx, *res, func(ctx context.Context) error {
		return s.reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCreated(string(res.Status))
	s.logger.Info().
		Int64("reservation_id", res.ID).
		Int64("resource_id", res.ResourceID).
		Int64("user_id", res.UserID).
		Int64("actor_id", actor.UserID).
		Time("start", res.StartTime).
		Msg("reservation created")

	out := s.reload(ctx, res)
	s.publish(realtime.EventReservationCreated, out)
	return out, nil
}

// Update changes resource, date, times or purpose. Owner or admin only.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id int64, req UpdateReservationRequest) (*domain.Reservation, error) {
	if err := validator.Check(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	current, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ReservationCancelled {
		return nil, ErrAlreadyCancelled
	}

	next := *current
	if req.Purpose != nil {
		next.Purpose = strings.TrimSpace(*req.Purpose)
	}

	rescheduled := req.ResourceID != nil || req.Date != nil || req.StartTime != nil || req.EndTime != nil
	if rescheduled {
		localStart := current.StartTime.In(s.loc)
		date := pick(req.Date, localStart.Format("2006-01-02"))
		startClock := pick(req.StartTime, localStart.Format("15:04"))
		endClock := pick(req.EndTime, current.EndTime.In(s.loc).Format("15:04"))
		if req.ResourceID != nil {
			next.ResourceID = *req.ResourceID
		}

		next.StartTime, next.EndTime, err = s.interval(date, startClock, endClock)
		if err != nil {
			return nil, err
		}
		if err := s.checkSchedule(ctx, next.ResourceID, next.StartTime, next.EndTime); err != nil {
			return nil, err
		}
		err = s.guarded(ctx, next, func(ctx context.Context) error {
			return s.reservations.Update(ctx, &next)
		})
	} else {
		err = s.reservations.Update(ctx, &next)
	}
	if err != nil {
		return nil, mapRepoErr(err)
	}

	out := s.reload(ctx, &next)
	s.publish(realtime.EventReservationUpdated, out)
	return out, nil
}

// Cancel marks the reservation cancelled. Owner or admin only.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	r, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, actor, r)
}

func (s *Service) cancel(ctx context.Context, actor domain.Actor, r *domain.Reservation) (*domain.Reservation, error) {
	if r.Status == domain.ReservationCancelled {
		return nil, ErrAlreadyCancelled
	}
	now := s.now().UTC()
	r.Status = domain.ReservationCancelled
	r.CancelledAt = &now
	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, mapRepoErr(err)
	}

	metrics.IncReservationCancelled()
	s.logger.Info().Int64("reservation_id", r.ID).Int64("actor_id", actor.UserID).Msg("reservation cancelled")
	s.publish(realtime.EventReservationCancelled, r)
	return r, nil
}

// SetStatus lets admins confirm pending reservations or cancel any active one.
func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, id int64, status string) (*domain.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	target, err := domain.ParseReservationStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	r, err := s.get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	switch {
	case r.Status == target:
		return r, nil
	case target == domain.ReservationCancelled:
		return s.cancel(ctx, actor, r)
	case r.Status == domain.ReservationPending && target == domain.ReservationConfirmed:
		next := *r
		next.Status = domain.ReservationConfirmed
		err := s.guarded(ctx, next, func(ctx context.Context) error {
			return s.reservations.Update(ctx, &next)
		})
		if err != nil {
			return nil, mapRepoErr(err)
		}
		metrics.IncReservationCreated(string(next.Status))
		s.publish(realtime.EventReservationUpdated, &next)
		return &next, nil
	default:
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, r.Status, target)
	}
}

// Delete removes the reservation for good. Admin only.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id int64) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.reservations.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.logger.Info().Int64("reservation_id", id).Int64("actor_id", actor.UserID).Msg("reservation deleted")
	s.publish(realtime.EventReservationDeleted, r)
	return nil
}

func (s *Service) Get(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	return s.get(ctx, actor, id)
}

// List returns reservations ordered by start time. Non-admins only ever see their own.
func (s *Service) List(ctx context.Context, actor domain.Actor, q ListQuery) ([]domain.Reservation, error) {
	f, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	return s.reservations.List(ctx, f)
}

// PurgeCancelled drops cancelled reservations cancelled more than retention ago.
func (s *Service) PurgeCancelled(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.reservations.PurgeCancelled(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddPurged(n)
		s.logger.Info().Int64("purged", n).Dur("retention", retention).Msg("cancelled reservations purged")
	}
	return n, nil
}

func (s *Service) get(ctx context.Context, actor domain.Actor, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !actor.CanAccess(r.UserID) {
		// hide other people's reservations entirely
		return nil, ErrNotFound
	}
	return r, nil
}

// guarded runs write under the per-resource lock and inside a transaction,
// after checking candidate against the confirmed reservations it overlaps.
// Only confirmed candidates can conflict.
func (s *Service) guarded(ctx context.Context, candidate domain.Reservation, write func(ctx context.Context) error) error {
	unlock, err := s.locker.Lock(ctx, lockKey(candidate.ResourceID))
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return ErrBusy
		}
		return err
	}
	defer unlock()

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if candidate.Status == domain.ReservationConfirmed {
			existing, err := s.reservations.ListOverlapping(ctx, candidate.ResourceID, candidate.StartTime, candidate.EndTime)
			if err != nil {
				return err
			}
			if c := domain.FindConflict(candidate, existing); c != nil {
				return &ConflictError{Existing: *c}
			}
		}
		return write(ctx)
	})
	if errors.Is(err, repository.ErrOverlap) {
		err = ErrConflict
	}
	if errors.Is(err, ErrConflict) {
		metrics.IncReservationConflict()
		s.logger.Info().Int64("resource_id", candidate.ResourceID).Time("start", candidate.StartTime).Msg("reservation conflict")
	}
	return err
}

// interval reads date and HH:MM clocks in the school timezone.
func (s *Service) interval(date, startClock, endClock string) (time.Time, time.Time, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	start, err := domain.At(day, startClock, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	end, err := domain.At(day, endClock, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return start, end, nil
}

func (s *Service) checkSchedule(ctx context.Context, resourceID int64, start, end time.Time) error {
	if !end.After(start) {
		return ErrInvalidInterval
	}
	if start.Before(s.now()) {
		return ErrInPast
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.IsOperatingDay(start.In(s.loc).Weekday()) {
		return ErrClosedDay
	}
	if !settings.Allows(start, end, s.loc) {
		return fmt.Errorf("%w (%s-%s)", ErrOutsideHours, settings.StartTime, settings.EndTime)
	}
	if _, err := s.resources.GetByID(ctx, resourceID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResourceNotFound
		}
		return err
	}
	return nil
}

func (s *Service) filter(q ListQuery) (repository.ReservationFilter, error) {
	var f repository.ReservationFilter
	statuses, err := parseStatuses(q.Status)
	if err != nil {
		return f, err
	}
	f.Statuses = statuses
	f.UserID = q.UserID
	f.ResourceID = q.ResourceID
	if f.From, err = s.bound(q.From, false); err != nil {
		return f, err
	}
	if f.To, err = s.bound(q.To, true); err != nil {
		return f, err
	}
	return f, nil
}

func parseStatuses(raw string) ([]domain.ReservationStatus, error) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "":
		return []domain.ReservationStatus{domain.ReservationConfirmed, domain.ReservationPending}, nil
	case "all":
		return nil, nil
	}
	var out []domain.ReservationStatus
	for _, p := range domain.SplitList(raw) {
		st, err := domain.ParseReservationStatus(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		out = append(out, st)
	}
	return out, nil
}

// bound parses a list bound. A plain date as the upper bound includes that whole day.
func (s *Service) bound(v string, upper bool) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := domain.ParseDate(v); err == nil {
		y, m, day := d.Date()
		t := time.Date(y, m, day, 0, 0, 0, 0, s.loc)
		if upper {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrValidation, v)
	}
	return t, nil
}

// reload fetches the joined names. The stored row is returned as is if that fails.
func (s *Service) reload(ctx context.Context, r *domain.Reservation) *domain.Reservation {
	full, err := s.reservations.GetByID(ctx, r.ID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("reservation_id", r.ID).Msg("reload reservation")
		return r
	}
	return full
}

func (s *Service) publish(typ string, r *domain.Reservation) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.ReservationEvent(typ, *r))
}

func lockKey(resourceID int64) string {
	return "resource:" + strconv.FormatInt(resourceID, 10)
}

func pick(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
