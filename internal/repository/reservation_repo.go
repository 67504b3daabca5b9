package repository

import (
	"context"
	"time"

	"schoolbooking/internal/domain"

	"gorm.io/gorm"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationModel struct {
	ID          int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ResourceID  int64      `gorm:"column:resource_id;not null"`
	UserID      int64      `gorm:"column:user_id;not null"`
	StartTime   time.Time  `gorm:"column:start_time;not null"`
	EndTime     time.Time  `gorm:"column:end_time;not null"`
	Purpose     *string    `gorm:"column:purpose;type:text"`
	Status      string     `gorm:"column:status;not null;index"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

func (reservationModel) TableName() string { return "reservations" }

// reservationRow is reservationModel plus the joined display names.
// The model is a named field: GORM ignores unexported anonymous embeds.
type reservationRow struct {
	Reservation  reservationModel `gorm:"embedded"`
	ResourceName string           `gorm:"column:resource_name"`
	UserName     string           `gorm:"column:user_name"`
}

func toDomainReservation(m reservationModel) *domain.Reservation {
	var purpose string
	if m.Purpose != nil {
		purpose = *m.Purpose
	}
	var cancelled *time.Time
	if m.CancelledAt != nil {
		v := m.CancelledAt.UTC()
		cancelled = &v
	}
	return &domain.Reservation{
		ID:          m.ID,
		ResourceID:  m.ResourceID,
		UserID:      m.UserID,
		StartTime:   m.StartTime.UTC(),
		EndTime:     m.EndTime.UTC(),
		Purpose:     purpose,
		Status:      domain.ReservationStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CancelledAt: cancelled,
	}
}

// Times are stored in UTC so SQLite's text comparison orders them correctly.
func toReservationModel(r *domain.Reservation) reservationModel {
	var purpose *string
	if r.Purpose != "" {
		v := r.Purpose
		purpose = &v
	}
	var cancelled *time.Time
	if r.CancelledAt != nil {
		v := r.CancelledAt.UTC()
		cancelled = &v
	}
	return reservationModel{
		ID:          r.ID,
		ResourceID:  r.ResourceID,
		UserID:      r.UserID,
		StartTime:   r.StartTime.UTC(),
		EndTime:     r.EndTime.UTC(),
		Purpose:     purpose,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		CancelledAt: cancelled,
	}
}

func toDomainReservationRow(row reservationRow) domain.Reservation {
	r := toDomainReservation(row.Reservation)
	r.ResourceName = row.ResourceName
	r.UserName = row.UserName
	return *r
}

type ReservationFilter struct {
	Statuses   []domain.ReservationStatus
	UserID     int64
	ResourceID int64
	// From and To select reservations overlapping [From, To). Zero means open.
	From time.Time
	To   time.Time
}

func (r *ReservationRepository) withNames(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Table("reservations").
		Select("reservations.*, resources.name AS resource_name, users.name AS user_name").
		Joins("LEFT JOIN resources ON resources.id = reservations.resource_id").
		Joins("LEFT JOIN users ON users.id = reservations.user_id")
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	m := toReservationModel(res)
	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		return mapError(err)
	}
	resourceName, userName := res.ResourceName, res.UserName
	*res = *toDomainReservation(m)
	res.ResourceName, res.UserName = resourceName, userName
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var row reservationRow
	tx := r.withNames(ctx).Where("reservations.id = ?", id).Take(&row)
	if tx.Error != nil {
		return nil, mapError(tx.Error)
	}
	res := toDomainReservationRow(row)
	return &res, nil
}

func (r *ReservationRepository) List(ctx context.Context, f ReservationFilter) ([]domain.Reservation, error) {
	q := r.withNames(ctx)
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where("reservations.status IN ?", statuses)
	}
	if f.UserID > 0 {
		q = q.Where("reservations.user_id = ?", f.UserID)
	}
	if f.ResourceID > 0 {
		q = q.Where("reservations.resource_id = ?", f.ResourceID)
	}
	if !f.From.IsZero() {
		q = q.Where("reservations.end_time > ?", f.From.UTC())
	}
	if !f.To.IsZero() {
		q = q.Where("reservations.start_time < ?", f.To.UTC())
	}

	var rows []reservationRow
	if err := q.Order("reservations.start_time ASC, reservations.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainReservationRow(row))
	}
	return out, nil
}

// ListOverlapping returns the confirmed reservations on resourceID that
// intersect [start, end).
func (r *ReservationRepository) ListOverlapping(ctx context.Context, resourceID int64, start, end time.Time) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := conn(ctx, r.db).
		Where("resource_id = ? AND status = ? AND start_time < ? AND end_time > ?",
			resourceID, string(domain.ReservationConfirmed), end.UTC(), start.UTC()).
		Order("start_time ASC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}
	out := make([]domain.Reservation, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	m := toReservationModel(res)
	m.UpdatedAt = time.Now().UTC()
	tx := conn(ctx, r.db).Model(&reservationModel{}).
		Where("id = ?", res.ID).
		Updates(map[string]any{
			"resource_id":  m.ResourceID,
			"user_id":      m.UserID,
			"start_time":   m.StartTime,
			"end_time":     m.EndTime,
			"purpose":      m.Purpose,
			"status":       m.Status,
			"cancelled_at": m.CancelledAt,
			"updated_at":   m.UpdatedAt,
		})
	if tx.Error != nil {
		return mapError(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	res.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	tx := conn(ctx, r.db).Delete(&reservationModel{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteReservationsWhere removes the matching reservations and returns them as they were.
func deleteReservationsWhere(db *gorm.DB, query string, args ...any) ([]domain.Reservation, error) {
	var rows []reservationModel
	if err := db.Where(query, args...).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := db.Where(query, args...).Delete(&reservationModel{}).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Reservation, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReservation(m))
	}
	return out, nil
}

// PurgeCancelled hard-deletes cancelled reservations whose cancellation is older than before.
func (r *ReservationRepository) PurgeCancelled(ctx context.Context, before time.Time) (int64, error) {
	tx := conn(ctx, r.db).
		Where("status = ? AND cancelled_at IS NOT NULL AND cancelled_at < ?",
			string(domain.ReservationCancelled), before.UTC()).
		Delete(&reservationModel{})
	return tx.RowsAffected, tx.Error
}
