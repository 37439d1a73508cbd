package service

import (
	"context"
	"time"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
	"equipment-rental-backend/internal/utils"
)

// AvailabilityChecker decides whether a quantity of equipment can be booked
// for a window. It reads through the repositories it is handed and never
// writes, so callers choose whether the check runs inside a transaction.
type AvailabilityChecker struct {
	clock Clock
}

func NewAvailabilityChecker(opts ...Option) *AvailabilityChecker {
	o := buildOptions(opts)
	return &AvailabilityChecker{clock: o.clock}
}

// Check returns the equipment when the booking is admissible, holding the
// equipment row lock for the rest of the caller's transaction. The order of
// rejections is: request shape, equipment state, unreturned items, date
// overlap, then plain stock.
func (c *AvailabilityChecker) Check(ctx context.Context, repos repository.Repositories, q domain.AvailabilityQuery) (*domain.Equipment, error) {
	return c.check(ctx, repos, q, repos.Equipment.GetForUpdate)
}

// Peek runs the same checks as Check on a plain read. The answer is advisory
// and is only binding once Check repeats it under lock.
func (c *AvailabilityChecker) Peek(ctx context.Context, repos repository.Repositories, q domain.AvailabilityQuery) (*domain.Equipment, error) {
	return c.check(ctx, repos, q, repos.Equipment.GetByID)
}

func (c *AvailabilityChecker) check(ctx context.Context, repos repository.Repositories, q domain.AvailabilityQuery, load func(context.Context, string) (*domain.Equipment, error)) (*domain.Equipment, error) {
	now := c.clock()
	recheck := q.ExcludeReservationID != ""

	if err := validateWindow(q, now, recheck); err != nil {
		return nil, err
	}
	if !validID(q.EquipmentID) {
		return nil, domain.NewNotFoundError("equipmentId", "equipment not found")
	}

	eq, err := load(ctx, q.EquipmentID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("equipmentId", "equipment not found")
		}
		return nil, domain.NewDatabaseError("failed to load equipment", err)
	}
	if eq.Status != domain.EquipmentStatusActive {
		return nil, domain.NewValidationError("equipmentId", "equipment is not available for reservation")
	}

	unreturned, err := repos.Reservations.FindUnreturned(ctx, eq.ID, now, q.ExcludeReservationID)
	if err != nil {
		return nil, domain.NewDatabaseError("failed to load reservations", err)
	}
	if len(unreturned) > 0 {
		return nil, domain.NewConflictError("equipmentId", "equipment not yet returned from a previous reservation")
	}

	end := domain.EffectiveEnd(q.EndDate, q.LateEndDate)
	overlapping, err := repos.Reservations.FindOverlapping(ctx, eq.ID, q.StartDate, end, q.ExcludeReservationID)
	if err != nil {
		return nil, domain.NewDatabaseError("failed to load reservations", err)
	}
	if len(overlapping) > 0 {
		committed, err := repos.Reservations.SumCommitted(ctx, eq.ID)
		if err != nil {
			return nil, domain.NewDatabaseError("failed to load reservations", err)
		}
		var booked int32
		for _, r := range overlapping {
			booked += r.Quantity
		}
		// Units held by the reservation being re-checked are already part of committed.
		if booked+q.Quantity > eq.AvailableQuantity+committed {
			return nil, domain.NewConflictError("startDate", "equipment already reserved for the requested dates")
		}
	}

	if !recheck && q.Quantity > eq.AvailableQuantity {
		return nil, domain.NewValidationError("quantity", "requested quantity exceeds available stock")
	}
	return eq, nil
}

func validateWindow(q domain.AvailabilityQuery, now time.Time, recheck bool) error {
	if q.Quantity <= 0 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	if q.StartDate.IsZero() {
		return domain.NewValidationError("startDate", "start date is required")
	}
	if q.EndDate.IsZero() {
		return domain.NewValidationError("endDate", "end date is required")
	}
	if !q.StartDate.Before(q.EndDate) {
		return domain.NewValidationError("endDate", "end date must be after start date")
	}
	if q.LateEndDate != nil && !q.LateEndDate.After(q.EndDate) {
		return domain.NewValidationError("lateEndDate", "late end date must be after end date")
	}
	if !recheck && q.StartDate.Before(utils.StartOfDay(now)) {
		return domain.NewValidationError("startDate", "start date cannot be in the past")
	}
	return nil
}
