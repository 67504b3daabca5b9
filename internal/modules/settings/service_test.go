package settings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/modules/realtime"
	"schoolbooking/internal/pkg/validator"
	"schoolbooking/internal/repository"
)

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*domain.SchoolSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SchoolSettings), args.Error(1)
}

func (m *mockSettingsRepo) Save(ctx context.Context, s *domain.SchoolSettings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(evt realtime.Event) {
	p.events = append(p.events, evt)
}

var admin = domain.Actor{UserID: 1, Role: domain.RoleAdmin}

func TestService_Get_StoresDefaultsWhenEmpty(t *testing.T) {
	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(nil, repository.ErrNotFound)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, nil, zerolog.Nop())
	got, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "07:30", got.StartTime)
	assert.Len(t, got.ClassBlocks, 9)
	repo.AssertExpectations(t)
}

func TestService_Get_FillsMissingArrays(t *testing.T) {
	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(&domain.SchoolSettings{StartTime: "08:00", EndTime: "12:00"}, nil)

	svc := NewService(repo, nil, zerolog.Nop())
	got, err := svc.Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "08:00", got.StartTime)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got.OperatingDays)
	assert.NotEmpty(t, got.ResourceTags)
}

func TestService_Update_Forbidden(t *testing.T) {
	svc := NewService(new(mockSettingsRepo), nil, zerolog.Nop())
	_, err := svc.Update(context.Background(), domain.Actor{UserID: 2, Role: domain.RoleUser}, domain.DefaultSettings())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestService_Update_RejectsBadClock(t *testing.T) {
	repo := new(mockSettingsRepo)
	svc := NewService(repo, nil, zerolog.Nop())

	req := domain.DefaultSettings()
	req.Breaks = []domain.TimeSlot{{StartTime: "9:10", EndTime: "09:30"}}

	_, err := svc.Update(context.Background(), admin, req)
	require.ErrorIs(t, err, ErrValidation)

	var fe validator.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "breaks[0].start_time")
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_Update_RejectsReversedDay(t *testing.T) {
	svc := NewService(new(mockSettingsRepo), nil, zerolog.Nop())

	req := domain.DefaultSettings()
	req.StartTime, req.EndTime = "18:00", "07:00"

	_, err := svc.Update(context.Background(), admin, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Update_RejectsOperatingDayOutOfRange(t *testing.T) {
	svc := NewService(new(mockSettingsRepo), nil, zerolog.Nop())

	req := domain.DefaultSettings()
	req.OperatingDays = []int{1, 7}

	_, err := svc.Update(context.Background(), admin, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Update_SavesAndPublishes(t *testing.T) {
	repo := new(mockSettingsRepo)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(s *domain.SchoolSettings) bool {
		return s.StartTime == "08:00" && len(s.ResourceTags) == 2
	})).Return(nil)
	pub := &recordingPublisher{}

	svc := NewService(repo, pub, zerolog.Nop())
	req := domain.DefaultSettings()
	req.StartTime = "08:00"
	req.ResourceTags = []string{" Lab ", "", "Lab", "Sala"}

	got, err := svc.Update(context.Background(), admin, req)

	require.NoError(t, err)
	assert.Equal(t, []string{"Lab", "Sala"}, got.ResourceTags)
	require.Len(t, pub.events, 1)
	assert.Equal(t, realtime.EventSettingsUpdated, pub.events[0].Type)
	repo.AssertExpectations(t)
}

func TestService_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stored := domain.DefaultSettings()
	repo := new(mockSettingsRepo)
	repo.On("Get", mock.Anything).Return(&stored, nil).Once()
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	svc := NewService(repo, nil, zerolog.Nop())
	svc.UseRedisCache(client, time.Minute)
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cacheKey))

	// second read is served from redis
	_, err = svc.Get(ctx)
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Get", 1)

	_, err = svc.Update(ctx, admin, domain.DefaultSettings())
	require.NoError(t, err)
	assert.False(t, mr.Exists(cacheKey))
}
