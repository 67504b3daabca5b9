package repository

import (
	"context"
	"strings"
	"time"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/pkg/utils"

	"gorm.io/gorm"
)

type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

type resourceModel struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name         string    `gorm:"column:name;not null;index"`
	Type         string    `gorm:"column:type;not null"`
	Location     string    `gorm:"column:location;not null"`
	Capacity     int       `gorm:"column:capacity;not null"`
	Equipment    string    `gorm:"column:equipment;type:text;not null;default:'[]'"`
	Availability string    `gorm:"column:availability;not null"`
	ImageURL     *string   `gorm:"column:image_url"`
	Tags         string    `gorm:"column:tags;type:text;not null;default:'[]'"`
	Description  *string   `gorm:"column:description;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (resourceModel) TableName() string { return "resources" }

func toDomainResource(m resourceModel) *domain.Resource {
	var image, desc string
	if m.ImageURL != nil {
		image = *m.ImageURL
	}
	if m.Description != nil {
		desc = *m.Description
	}
	return &domain.Resource{
		ID:           m.ID,
		Name:         m.Name,
		Type:         m.Type,
		Location:     m.Location,
		Capacity:     m.Capacity,
		Equipment:    utils.StringToList(m.Equipment),
		Availability: m.Availability,
		ImageURL:     image,
		Tags:         utils.StringToList(m.Tags),
		Description:  desc,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toResourceModel(r *domain.Resource) resourceModel {
	var image, desc *string
	if r.ImageURL != "" {
		v := r.ImageURL
		image = &v
	}
	if r.Description != "" {
		v := r.Description
		desc = &v
	}
	return resourceModel{
		ID:           r.ID,
		Name:         r.Name,
		Type:         r.Type,
		Location:     r.Location,
		Capacity:     r.Capacity,
		Equipment:    utils.ListToString(r.Equipment),
		Availability: r.Availability,
		ImageURL:     image,
		Tags:         utils.ListToString(r.Tags),
		Description:  desc,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type ResourceFilter struct {
	Type  string
	Query string
	Tags  []string
}

func (r *ResourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	m := toResourceModel(res)
	if err := conn(ctx, r.db).Create(&m).Error; err != nil {
		return mapError(err)
	}
	*res = *toDomainResource(m)
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id int64) (*domain.Resource, error) {
	var m resourceModel
	if err := conn(ctx, r.db).First(&m, id).Error; err != nil {
		return nil, mapError(err)
	}
	return toDomainResource(m), nil
}

// List applies type and text filters in SQL. Tags are stored as JSON text, so
// the every-tag match runs on the decoded rows.
func (r *ResourceRepository) List(ctx context.Context, f ResourceFilter) ([]domain.Resource, error) {
	q := conn(ctx, r.db).Model(&resourceModel{})
	if t := strings.TrimSpace(f.Type); t != "" {
		q = q.Where("LOWER(type) = ?", strings.ToLower(t))
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(location) LIKE ?", like, like)
	}

	var rows []resourceModel
	if err := q.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Resource, 0, len(rows))
	for _, m := range rows {
		res := toDomainResource(m)
		if !res.HasAllTags(f.Tags) {
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

func (r *ResourceRepository) Update(ctx context.Context, res *domain.Resource) error {
	m := toResourceModel(res)
	m.UpdatedAt = time.Now().UTC()
	tx := conn(ctx, r.db).Model(&resourceModel{}).
		Where("id = ?", res.ID).
		Updates(map[string]any{
			"name":         m.Name,
			"type":         m.Type,
			"location":     m.Location,
			"capacity":     m.Capacity,
			"equipment":    m.Equipment,
			"availability": m.Availability,
			"image_url":    m.ImageURL,
			"tags":         m.Tags,
			"description":  m.Description,
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

// Delete removes the resource together with all of its reservations and
// returns the reservations that went with it.
func (r *ResourceRepository) Delete(ctx context.Context, id int64) ([]domain.Reservation, error) {
	var removed []domain.Reservation
	err := NewTransactor(r.db).InTx(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		var err error
		if removed, err = deleteReservationsWhere(db, "resource_id = ?", id); err != nil {
			return err
		}
		tx := db.Delete(&resourceModel{}, id)
		if tx.Error != nil {
			return tx.Error
		}
		if tx.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
