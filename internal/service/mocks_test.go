package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
)

// MockEquipmentRepo
type MockEquipmentRepo struct {
	mock.Mock
}

func (m *MockEquipmentRepo) Create(ctx context.Context, e *domain.Equipment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *MockEquipmentRepo) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) GetForUpdate(ctx context.Context, id string) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) Update(ctx context.Context, e *domain.Equipment) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
func (m *MockEquipmentRepo) DecrementStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) RestoreStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	args := m.Called(ctx, id, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}
func (m *MockEquipmentRepo) List(ctx context.Context, filter repository.EquipmentFilter, page repository.Pagination) ([]domain.Equipment, int32, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]domain.Equipment), args.Get(1).(int32), args.Error(2)
}

// MockReservationRepo
type MockReservationRepo struct {
	mock.Mock
}

func (m *MockReservationRepo) Create(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockReservationRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) SetLateEndDate(ctx context.Context, id string, lateEnd time.Time) (*domain.Reservation, error) {
	args := m.Called(ctx, id, lateEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) List(ctx context.Context, filter repository.ReservationFilter, page repository.Pagination) ([]domain.Reservation, int32, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]domain.Reservation), args.Get(1).(int32), args.Error(2)
}
func (m *MockReservationRepo) FindUnreturned(ctx context.Context, equipmentID string, now time.Time, excludeID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, equipmentID, now, excludeID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) FindOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, equipmentID, start, end, excludeID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}
func (m *MockReservationRepo) SumCommitted(ctx context.Context, equipmentID string) (int32, error) {
	args := m.Called(ctx, equipmentID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockReservationRepo) CountLive(ctx context.Context, equipmentID string, now time.Time) (int32, error) {
	args := m.Called(ctx, equipmentID, now)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockReservationRepo) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

// MockStore runs transactions directly against the mocked repositories.
type MockStore struct {
	EquipmentRepo   *MockEquipmentRepo
	ReservationRepo *MockReservationRepo
	Txs             int
}

func NewMockStore() *MockStore {
	return &MockStore{EquipmentRepo: new(MockEquipmentRepo), ReservationRepo: new(MockReservationRepo)}
}

func (s *MockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.Txs++
	return fn(ctx, repository.Repositories{Equipment: s.EquipmentRepo, Reservations: s.ReservationRepo})
}
func (s *MockStore) Equipment() repository.EquipmentRepository {
	return s.EquipmentRepo
}
func (s *MockStore) Reservations() repository.ReservationRepository {
	return s.ReservationRepo
}
