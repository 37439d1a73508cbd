package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-rental-backend/internal/config"
	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository/memory"
	"equipment-rental-backend/internal/service"
)

func TestMarkOverdueReservations(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return start }

	store := memory.NewStore()
	store.SetClock(now)
	equipmentSvc := service.NewEquipmentService(store, service.WithClock(now))
	reservationSvc := service.NewReservationService(store, service.WithClock(now))

	eq, err := equipmentSvc.CreateEquipment(ctx, &domain.Equipment{
		OwnerID:           "5a0c5e2e-8a55-4b43-9d4f-2c1b9c1f0a01",
		Name:              "Ladder",
		Category:          domain.CategoryPainting,
		DailyRate:         decimal.NewFromInt(5),
		Photos:            []string{"ladder.jpg"},
		AvailableQuantity: 2,
	})
	require.NoError(t, err)
	_, err = equipmentSvc.ApproveEquipment(ctx, eq.ID)
	require.NoError(t, err)

	res, err := reservationSvc.CreateReservation(ctx, domain.ReservationRequest{
		EquipmentID:     eq.ID,
		RequesterID:     "5a0c5e2e-8a55-4b43-9d4f-2c1b9c1f0a02",
		StartDate:       start.AddDate(0, 0, 1).Truncate(24 * time.Hour),
		EndDate:         start.AddDate(0, 0, 3).Truncate(24 * time.Hour),
		Quantity:        1,
		DeliveryAddress: "1 Main Road",
	})
	require.NoError(t, err)

	jr := NewJobRunner(reservationSvc, &config.Config{})
	jr.now = func() time.Time { return start.AddDate(0, 0, 10) }

	require.NoError(t, jr.RunOnce(JobMarkOverdueReservations))
	got, err := reservationSvc.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusOverdue, got.Status)

	// A second run finds nothing new and leaves the reservation alone.
	jr.MarkOverdueReservations()
	got, err = reservationSvc.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusOverdue, got.Status)
	n, err := reservationSvc.SweepOverdue(ctx, jr.now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunOnceUnknownJob(t *testing.T) {
	jr := NewJobRunner(nil, &config.Config{})
	assert.ErrorContains(t, jr.RunOnce("send-bill-reminders"), "unknown job")
}

type failingReservations struct {
	service.ReservationService
	err error
}

func (f failingReservations) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	return 0, f.err
}

func TestMarkOverdueReservationsSurvivesFailures(t *testing.T) {
	jr := NewJobRunner(failingReservations{err: domain.NewDatabaseError("failed", errors.New("down"))}, &config.Config{})
	assert.NotPanics(t, jr.MarkOverdueReservations)

	// A nil service panics inside the job; the runner recovers.
	jr = NewJobRunner(nil, &config.Config{})
	assert.NotPanics(t, jr.MarkOverdueReservations)
}

func TestRunOnceReportsFailures(t *testing.T) {
	t.Run("Sweep error", func(t *testing.T) {
		cause := domain.NewDatabaseError("failed to mark overdue reservations", errors.New("down"))
		jr := NewJobRunner(failingReservations{err: cause}, &config.Config{})

		err := jr.RunOnce(JobMarkOverdueReservations)
		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.True(t, domain.IsKind(err, domain.ErrorKindDatabase))
	})

	t.Run("Panic", func(t *testing.T) {
		jr := NewJobRunner(nil, &config.Config{})

		var err error
		require.NotPanics(t, func() { err = jr.RunOnce(JobMarkOverdueReservations) })
		assert.ErrorContains(t, err, "panicked")
	})
}
