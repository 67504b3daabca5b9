package reservations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolbooking/internal/database"
	"schoolbooking/internal/domain"
	"schoolbooking/internal/repository"
)

type storeFixture struct {
	svc      *Service
	pub      *recordingPublisher
	owner    domain.Actor
	stranger domain.Actor
	labID    int64
	salaID   int64
}

// newStoreFixture runs the service on real repositories over in-memory SQLite.
func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:reservations_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Connect(dsn, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	resources := repository.NewResourceRepository(db)

	ana := &domain.User{Name: "Ana", Email: "ana@school.test", Role: domain.RoleUser, PasswordHash: "x"}
	bruno := &domain.User{Name: "Bruno", Email: "bruno@school.test", Role: domain.RoleUser, PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, ana))
	require.NoError(t, users.Create(ctx, bruno))

	lab := &domain.Resource{Name: "Laboratório", Type: "Laboratório", Location: "Bloco B", Capacity: 20, Availability: domain.AvailabilityAvailable}
	sala := &domain.Resource{Name: "Sala 2", Type: "Sala", Location: "Bloco A", Capacity: 30, Availability: domain.AvailabilityAvailable}
	require.NoError(t, resources.Create(ctx, lab))
	require.NoError(t, resources.Create(ctx, sala))

	pub := &recordingPublisher{}
	svc := NewService(Deps{
		Reservations: repository.NewReservationRepository(db),
		Resources:    resources,
		Users:        users,
		Settings:     staticSettings{},
		Tx:           repository.NewTransactor(db),
		Publisher:    pub,
		Location:     time.UTC,
		Logger:       zerolog.Nop(),
	})
	svc.now = func() time.Time { return fixedNow }

	return &storeFixture{
		svc:      svc,
		pub:      pub,
		owner:    domain.Actor{UserID: ana.ID, Role: domain.RoleUser},
		stranger: domain.Actor{UserID: bruno.ID, Role: domain.RoleUser},
		labID:    lab.ID,
		salaID:   sala.ID,
	}
}

func (f *storeFixture) book(t *testing.T, actor domain.Actor, resourceID int64, start, end string) *domain.Reservation {
	t.Helper()
	r, err := f.svc.Create(context.Background(), actor, CreateReservationRequest{
		ResourceID: resourceID, Date: "2030-03-04", StartTime: start, EndTime: end, Purpose: "Aula",
	})
	require.NoError(t, err)
	return r
}

func TestStore_OwnerReadsOwnReservation(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	created := f.book(t, f.owner, f.labID, "08:20", "09:10")
	require.NotZero(t, created.ID)
	assert.Equal(t, f.owner.UserID, created.UserID)
	assert.Equal(t, domain.ReservationConfirmed, created.Status)
	assert.Equal(t, "Laboratório", created.ResourceName)
	assert.Equal(t, "Ana", created.UserName)

	got, err := f.svc.Get(ctx, f.owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, f.labID, got.ResourceID)
	assert.True(t, at(8, 20).Equal(got.StartTime))
	assert.True(t, at(9, 10).Equal(got.EndTime))
	assert.Equal(t, "Aula", got.Purpose)

	_, err = f.svc.Get(ctx, f.stranger, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := f.svc.List(ctx, f.owner, ListQuery{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	list, err = f.svc.List(ctx, f.stranger, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_OwnerUpdatesAndCancels(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	mine := f.book(t, f.owner, f.labID, "10:20", "11:10")
	f.book(t, f.stranger, f.salaID, "10:20", "11:10")

	start, end := "10:40", "11:30"
	moved, err := f.svc.Update(ctx, f.owner, mine.ID, UpdateReservationRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, mine.ID, moved.ID)
	assert.True(t, at(10, 40).Equal(moved.StartTime))

	stored, err := f.svc.Get(ctx, f.owner, mine.ID)
	require.NoError(t, err)
	assert.True(t, at(11, 30).Equal(stored.EndTime))

	_, err = f.svc.Update(ctx, f.owner, mine.ID, UpdateReservationRequest{ResourceID: &f.salaID})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = f.svc.Cancel(ctx, f.stranger, mine.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := f.svc.Cancel(ctx, f.owner, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, cancelled.Status)

	stored, err = f.svc.Get(ctx, f.owner, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)

	_, err = f.svc.Cancel(ctx, f.owner, mine.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// the freed slot can be booked again
	f.book(t, f.stranger, f.labID, "10:40", "11:30")
}
