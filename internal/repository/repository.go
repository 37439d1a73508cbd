package repository

import (
	"context"
	"errors"
	"time"

	"equipment-rental-backend/internal/domain"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")

	// ErrInsufficientStock is returned by a conditional decrement that matched no row.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStaleState is returned by a conditional status update whose expected status no longer holds.
	ErrStaleState = errors.New("record state changed")
)

type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	// GetForUpdate reads the row and, inside a transaction, locks it until commit.
	GetForUpdate(ctx context.Context, id string) (*domain.Equipment, error)
	Update(ctx context.Context, e *domain.Equipment) error
	// DecrementStock subtracts qty only if the listing is active and has at least
	// qty units; otherwise it returns ErrInsufficientStock.
	DecrementStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error)
	RestoreStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error)
	List(ctx context.Context, filter EquipmentFilter, page Pagination) ([]domain.Equipment, int32, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error)
	// UpdateStatus moves a reservation from `from` to `to`, returning ErrStaleState
	// when the stored status is no longer `from`.
	UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error)
	SetLateEndDate(ctx context.Context, id string, lateEnd time.Time) (*domain.Reservation, error)
	List(ctx context.Context, filter ReservationFilter, page Pagination) ([]domain.Reservation, int32, error)

	// FindUnreturned returns reservations on the equipment whose effective end is
	// before now and which still hold stock.
	FindUnreturned(ctx context.Context, equipmentID string, now time.Time, excludeID string) ([]domain.Reservation, error)
	// FindOverlapping returns live reservations whose [start, effective end]
	// intersects [start, end] (closed intervals).
	FindOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) ([]domain.Reservation, error)
	// SumCommitted sums the quantity of all reservations that still hold stock.
	SumCommitted(ctx context.Context, equipmentID string) (int32, error)
	// CountLive counts live reservations whose effective end is not before now.
	CountLive(ctx context.Context, equipmentID string, now time.Time) (int32, error)
	// MarkOverdue flips live reservations that ended before now without a
	// late-return date to overdue and returns them.
	MarkOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Equipment    EquipmentRepository
	Reservations ReservationRepository
}

// Transactor runs fn atomically: every write made through repos is committed
// together or not at all.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
