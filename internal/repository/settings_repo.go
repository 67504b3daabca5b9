package repository

import (
	"context"
	"encoding/json"
	"time"

	"schoolbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const settingsRowID = 1

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// settingsModel keeps the whole settings document in a single row.
type settingsModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (settingsModel) TableName() string { return "school_settings" }

// Get returns ErrNotFound when nothing has been stored yet.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.SchoolSettings, error) {
	var m settingsModel
	if err := conn(ctx, r.db).First(&m, settingsRowID).Error; err != nil {
		return nil, mapError(err)
	}
	var s domain.SchoolSettings
	if err := json.Unmarshal([]byte(m.Payload), &s); err != nil {
		return nil, err
	}
	s.UpdatedAt = m.UpdatedAt
	return &s, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s *domain.SchoolSettings) error {
	s.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m := settingsModel{ID: settingsRowID, Payload: string(payload), UpdatedAt: s.UpdatedAt}
	return conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&m).Error
}
