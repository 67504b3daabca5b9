package settings

import (
	"context"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
)

type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SchoolSettings, error)
	Save(ctx context.Context, s *domain.SchoolSettings) error
}

type Publisher interface {
	Publish(evt realtime.Event)
}
