package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/repository"
	"equipment-rental-backend/internal/utils"
)

type reservationService struct {
	store   Store
	checker *AvailabilityChecker
	clock   Clock
}

func NewReservationService(store Store, opts ...Option) ReservationService {
	o := buildOptions(opts)
	return &reservationService{
		store:   store,
		checker: &AvailabilityChecker{clock: o.clock},
		clock:   o.clock,
	}
}

// CreateReservation admits a booking: availability check, stock decrement
// and insert commit together or not at all.
func (s *reservationService) CreateReservation(ctx context.Context, req domain.ReservationRequest) (*domain.Reservation, error) {
	const method = "reservationService.CreateReservation"
	logger.EnterMethod(ctx, method, "equipmentID", req.EquipmentID, "requesterID", req.RequesterID, "quantity", req.Quantity)

	if err := validateReservationRequest(req); err != nil {
		return nil, s.fail(ctx, method, err, "failed to create reservation")
	}

	query := domain.AvailabilityQuery{
		EquipmentID: req.EquipmentID,
		Quantity:    req.Quantity,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		LateEndDate: req.LateEndDate,
	}

	var created *domain.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		eq, err := s.checker.Check(ctx, repos, query)
		if err != nil {
			return err
		}

		if _, err := repos.Equipment.DecrementStock(ctx, eq.ID, req.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return domain.NewValidationError("quantity", "requested quantity exceeds available stock")
			}
			return err
		}

		end := domain.EffectiveEnd(req.EndDate, req.LateEndDate)
		r := &domain.Reservation{
			EquipmentID:     eq.ID,
			RequesterID:     req.RequesterID,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			LateEndDate:     req.LateEndDate,
			Quantity:        req.Quantity,
			TotalValue:      utils.TotalValue(eq.DailyRate, req.StartDate, end, req.Quantity),
			DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
			Status:          domain.ReservationStatusPending,
		}
		if err := repos.Reservations.Create(ctx, r); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, method, err, "failed to create reservation")
	}

	logger.ExitMethod(ctx, method, "reservationID", created.ID, "totalValue", created.TotalValue.String())
	return created, nil
}

func validateReservationRequest(req domain.ReservationRequest) error {
	if _, err := uuid.Parse(req.EquipmentID); err != nil {
		return domain.NewValidationError("equipmentId", "invalid equipment id")
	}
	if _, err := uuid.Parse(req.RequesterID); err != nil {
		return domain.NewValidationError("requesterId", "invalid requester id")
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return domain.NewValidationError("deliveryAddress", "delivery address is required")
	}
	return nil
}

func (s *reservationService) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError("id", "reservation not found")
	}
	r, err := s.store.Reservations().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("id", "reservation not found")
		}
		return nil, domain.NewDatabaseError("failed to load reservation", err)
	}
	return r, nil
}

// UpdateReservation applies a late-return extension and/or a status change.
// Leaving a stock-holding status gives the units back exactly once: the
// status update is conditional on the status read under lock.
func (s *reservationService) UpdateReservation(ctx context.Context, id string, patch domain.ReservationPatch) (*domain.Reservation, error) {
	const method = "reservationService.UpdateReservation"
	logger.EnterMethod(ctx, method, "reservationID", id)

	if patch.Status == nil && patch.LateEndDate == nil {
		return nil, s.fail(ctx, method, domain.NewValidationError("", "update contains no fields"), "")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, s.fail(ctx, method, domain.NewValidationError("status", "unknown reservation status"), "")
	}
	if !validID(id) {
		return nil, s.fail(ctx, method, domain.NewNotFoundError("id", "reservation not found"), "")
	}

	var result *domain.Reservation
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		r, err := repos.Reservations.GetForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return domain.NewNotFoundError("id", "reservation not found")
			}
			return err
		}
		if r.Status.Final() {
			return domain.NewValidationError("status", "reservation is "+string(r.Status)+" and cannot be changed")
		}

		if patch.LateEndDate != nil {
			if r, err = s.extend(ctx, repos, r, *patch.LateEndDate); err != nil {
				return err
			}
		}
		if patch.Status != nil {
			if r, err = s.transition(ctx, repos, r, *patch.Status); err != nil {
				return err
			}
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, method, err, "failed to update reservation")
	}

	logger.ExitMethod(ctx, method, "reservationID", id, "status", result.Status)
	return result, nil
}

func (s *reservationService) extend(ctx context.Context, repos repository.Repositories, r *domain.Reservation, lateEnd time.Time) (*domain.Reservation, error) {
	if !lateEnd.After(r.EndDate) {
		return nil, domain.NewValidationError("lateEndDate", "late end date must be after end date")
	}
	_, err := s.checker.Check(ctx, repos, domain.AvailabilityQuery{
		EquipmentID:          r.EquipmentID,
		Quantity:             r.Quantity,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		LateEndDate:          &lateEnd,
		ExcludeReservationID: r.ID,
	})
	if err != nil {
		return nil, err
	}
	updated, err := repos.Reservations.SetLateEndDate(ctx, r.ID, lateEnd.UTC())
	if err != nil {
		return nil, err
	}

	// An overdue booking granted a return date still ahead is back on schedule.
	if updated.Status == domain.ReservationStatusOverdue && lateEnd.After(s.clock()) {
		updated, err = repos.Reservations.UpdateStatus(ctx, r.ID, domain.ReservationStatusOverdue, domain.ReservationStatusConfirmed)
		if err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return nil, domain.NewConflictError("status", "reservation was modified concurrently")
			}
			return nil, err
		}
	}
	return updated, nil
}

func (s *reservationService) transition(ctx context.Context, repos repository.Repositories, r *domain.Reservation, target domain.ReservationStatus) (*domain.Reservation, error) {
	if target == r.Status {
		return nil, domain.NewValidationError("status", "reservation already "+string(target))
	}
	if !domain.CanTransitionReservation(r.Status, target) {
		return nil, domain.NewValidationError("status", "illegal status transition from "+string(r.Status)+" to "+string(target))
	}

	updated, err := repos.Reservations.UpdateStatus(ctx, r.ID, r.Status, target)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, domain.NewConflictError("status", "reservation was modified concurrently")
		}
		return nil, err
	}

	if r.Status.HoldsStock() && !target.HoldsStock() {
		if _, err := repos.Equipment.RestoreStock(ctx, r.EquipmentID, r.Quantity); err != nil {
			return nil, err
		}
	}
	return updated, nil
}

// SweepOverdue flips pending and confirmed reservations whose end date has
// passed without a late-return date. Rerunning it finds nothing new.
func (s *reservationService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	const method = "reservationService.SweepOverdue"
	logger.EnterMethod(ctx, method, "now", now)

	marked, err := s.store.Reservations().MarkOverdue(ctx, now)
	if err != nil {
		return 0, s.fail(ctx, method, err, "failed to mark overdue reservations")
	}

	logger.ExitMethod(ctx, method, "count", len(marked))
	return len(marked), nil
}

func (s *reservationService) ListReservations(ctx context.Context, filter repository.ReservationFilter, page repository.Pagination) (domain.Page[domain.Reservation], error) {
	page = page.Normalize()
	if (filter.EquipmentID != "" && !validID(filter.EquipmentID)) || (filter.RequesterID != "" && !validID(filter.RequesterID)) {
		return domain.NewPage[domain.Reservation](nil, 0, page.Page, page.Limit), nil
	}
	items, total, err := s.store.Reservations().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Reservation]{}, domain.NewDatabaseError("failed to list reservations", err)
	}
	return domain.NewPage(items, total, page.Page, page.Limit), nil
}

// CheckAvailability runs the admission checks without booking anything or
// taking locks.
func (s *reservationService) CheckAvailability(ctx context.Context, q domain.AvailabilityQuery) (*domain.Equipment, error) {
	repos := repository.Repositories{Equipment: s.store.Equipment(), Reservations: s.store.Reservations()}
	eq, err := s.checker.Peek(ctx, repos, q)
	if err != nil {
		return nil, toServiceError(err, "failed to check availability")
	}
	return eq, nil
}

func (s *reservationService) fail(ctx context.Context, method string, err error, message string) error {
	err = toServiceError(err, message)
	logger.ExitMethodWithError(ctx, method, err, !domain.IsKind(err, domain.ErrorKindDatabase))
	return err
}
