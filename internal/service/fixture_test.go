package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository/memory"
	"equipment-rental-backend/internal/service"
)

const (
	ownerID     = "0b6f5c1e-3a52-4f0e-9d1b-1f2a3b4c5d01"
	requesterID = "0b6f5c1e-3a52-4f0e-9d1b-1f2a3b4c5d02"
)

// day returns midnight UTC n days after 2025-06-10.
func day(n int) time.Time {
	return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	ctx          context.Context
	clock        *testClock
	store        *memory.Store
	equipment    service.EquipmentService
	reservations service.ReservationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: day(0).Add(9 * time.Hour)}
	store := memory.NewStore()
	store.SetClock(clock.Now)
	return &fixture{
		ctx:          context.Background(),
		clock:        clock,
		store:        store,
		equipment:    service.NewEquipmentService(store, service.WithClock(clock.Now)),
		reservations: service.NewReservationService(store, service.WithClock(clock.Now)),
	}
}

func (f *fixture) submit(t *testing.T, name string, qty int32) *domain.Equipment {
	t.Helper()
	e, err := f.equipment.CreateEquipment(f.ctx, &domain.Equipment{
		OwnerID:           ownerID,
		Name:              name,
		Description:       "test listing",
		Category:          domain.CategoryPowerTools,
		DailyRate:         decimal.NewFromInt(20),
		Photos:            []string{"https://img.example/1.jpg"},
		AvailableQuantity: qty,
	})
	require.NoError(t, err)
	return e
}

// active submits and approves a listing.
func (f *fixture) active(t *testing.T, name string, qty int32) *domain.Equipment {
	t.Helper()
	e := f.submit(t, name, qty)
	e, err := f.equipment.ApproveEquipment(f.ctx, e.ID)
	require.NoError(t, err)
	return e
}

func (f *fixture) reserve(equipmentID string, qty int32, start, end time.Time) (*domain.Reservation, error) {
	return f.reservations.CreateReservation(f.ctx, domain.ReservationRequest{
		EquipmentID:     equipmentID,
		RequesterID:     requesterID,
		StartDate:       start,
		EndDate:         end,
		Quantity:        qty,
		DeliveryAddress: "12 Harbour Road",
	})
}

func (f *fixture) stock(t *testing.T, equipmentID string) int32 {
	t.Helper()
	e, err := f.equipment.GetEquipment(f.ctx, equipmentID)
	require.NoError(t, err)
	return e.AvailableQuantity
}

func (f *fixture) setStatus(id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	return f.reservations.UpdateReservation(f.ctx, id, domain.ReservationPatch{Status: &status})
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind, field string) *domain.Error {
	t.Helper()
	require.Error(t, err)
	de, ok := domain.AsError(err)
	require.True(t, ok, "expected domain error, got %v", err)
	require.Equal(t, kind, de.Kind, de.Message)
	require.Equal(t, field, de.Field, de.Message)
	return de
}
