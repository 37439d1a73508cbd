package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
)

type EquipmentService interface {
	CreateEquipment(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error)
	GetEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	UpdateEquipment(ctx context.Context, id string, patch domain.EquipmentPatch) (*domain.Equipment, error)
	ApproveEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	RejectEquipment(ctx context.Context, id, reason string) (*domain.Equipment, error)
	DeactivateEquipment(ctx context.Context, id string) (*domain.Equipment, error)
	ListEquipment(ctx context.Context, filter repository.EquipmentFilter, page repository.Pagination) (domain.Page[domain.Equipment], error)
	ListCategories(ctx context.Context) []domain.EquipmentCategory
}

type ReservationService interface {
	CreateReservation(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error)
	GetReservation(ctx context.Context, id string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, id string, patch domain.ReservationPatch) (*domain.Reservation, error)
	SweepOverdue(ctx context.Context, now time.Time) (int, error)
	ListReservations(ctx context.Context, filter repository.ReservationFilter, page repository.Pagination) (domain.Page[domain.Reservation], error)
	CheckAvailability(ctx context.Context, q domain.AvailabilityQuery) (*domain.Equipment, error)
}

// Store is what the services need from a persistence backend.
type Store interface {
	repository.Transactor
	Equipment() repository.EquipmentRepository
	Reservations() repository.ReservationRepository
}

// Clock returns the current time. Services read it once per operation.
type Clock func() time.Time

type options struct {
	clock Clock
}

type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// toServiceError passes domain errors through and wraps anything else as a
// database error.
func toServiceError(err error, message string) error {
	if err == nil {
		return nil
	}
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.NewDatabaseError(message, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// validID reports whether id can name a stored row. Ids are UUIDs, so
// anything else is treated as not found without reaching the store.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
