package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/repository"
)

type equipmentService struct {
	store Store
	clock Clock
}

func NewEquipmentService(store Store, opts ...Option) EquipmentService {
	o := buildOptions(opts)
	return &equipmentService{store: store, clock: o.clock}
}

// CreateEquipment submits a listing for approval. Status and rating supplied
// by the caller are ignored.
func (s *equipmentService) CreateEquipment(ctx context.Context, e *domain.Equipment) (*domain.Equipment, error) {
	const method = "equipmentService.CreateEquipment"
	logger.EnterMethod(ctx, method, "ownerID", e.OwnerID, "name", e.Name)

	if _, err := uuid.Parse(e.OwnerID); err != nil {
		return nil, s.fail(ctx, method, domain.NewValidationError("ownerId", "invalid owner id"), "")
	}
	if err := e.Validate(); err != nil {
		return nil, s.fail(ctx, method, err, "")
	}

	listing := *e
	listing.ID = ""
	listing.Status = domain.EquipmentStatusPending
	listing.AverageRating = 0
	listing.RejectionReason = nil
	listing.ApprovedAt = nil
	listing.Photos = append([]string(nil), e.Photos...)

	if err := s.store.Equipment().Create(ctx, &listing); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			err = domain.NewConflictError("name", "owner already has equipment with this name")
		}
		return nil, s.fail(ctx, method, err, "failed to create equipment")
	}

	logger.ExitMethod(ctx, method, "equipmentID", listing.ID)
	return &listing, nil
}

func (s *equipmentService) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError("id", "equipment not found")
	}
	e, err := s.store.Equipment().GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NewNotFoundError("id", "equipment not found")
		}
		return nil, domain.NewDatabaseError("failed to load equipment", err)
	}
	return e, nil
}

// UpdateEquipment applies an owner edit under the lifecycle's per-state policy.
func (s *equipmentService) UpdateEquipment(ctx context.Context, id string, patch domain.EquipmentPatch) (*domain.Equipment, error) {
	const method = "equipmentService.UpdateEquipment"
	logger.EnterMethod(ctx, method, "equipmentID", id, "fields", patch.Fields())

	updated, err := s.modify(ctx, id, func(e domain.Equipment, now time.Time) (domain.Equipment, error) {
		return e.ApplyEdit(patch, now)
	})
	if err != nil {
		return nil, s.fail(ctx, method, err, "failed to update equipment")
	}

	logger.ExitMethod(ctx, method, "equipmentID", id, "status", updated.Status)
	return updated, nil
}

func (s *equipmentService) ApproveEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	const method = "equipmentService.ApproveEquipment"
	logger.EnterMethod(ctx, method, "equipmentID", id)

	updated, err := s.modify(ctx, id, domain.Equipment.Approve)
	if err != nil {
		return nil, s.fail(ctx, method, err, "failed to approve equipment")
	}

	logger.ExitMethod(ctx, method, "equipmentID", id)
	return updated, nil
}

func (s *equipmentService) RejectEquipment(ctx context.Context, id, reason string) (*domain.Equipment, error) {
	const method = "equipmentService.RejectEquipment"
	logger.EnterMethod(ctx, method, "equipmentID", id)

	updated, err := s.modify(ctx, id, func(e domain.Equipment, now time.Time) (domain.Equipment, error) {
		return e.Reject(reason, now)
	})
	if err != nil {
		return nil, s.fail(ctx, method, err, "failed to reject equipment")
	}

	logger.ExitMethod(ctx, method, "equipmentID", id)
	return updated, nil
}

// DeactivateEquipment is the soft delete: the row stays, the listing stops
// accepting reservations.
func (s *equipmentService) DeactivateEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	inactive := domain.EquipmentStatusInactive
	return s.UpdateEquipment(ctx, id, domain.EquipmentPatch{Status: &inactive})
}

// modify loads the listing under lock, derives the next state with fn and
// persists it. Taking an active listing offline is refused while it still
// has live bookings.
func (s *equipmentService) modify(ctx context.Context, id string, fn func(domain.Equipment, time.Time) (domain.Equipment, error)) (*domain.Equipment, error) {
	if !validID(id) {
		return nil, domain.NewNotFoundError("id", "equipment not found")
	}
	now := s.clock()
	var result *domain.Equipment
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		current, err := repos.Equipment.GetForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return domain.NewNotFoundError("id", "equipment not found")
			}
			return err
		}

		next, err := fn(*current, now)
		if err != nil {
			return err
		}

		if current.Status == domain.EquipmentStatusActive && next.Status == domain.EquipmentStatusInactive {
			live, err := repos.Reservations.CountLive(ctx, id, now)
			if err != nil {
				return err
			}
			if live > 0 {
				return domain.NewConflictError("status", "equipment has active reservations")
			}
		}

		if err := repos.Equipment.Update(ctx, &next); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return domain.NewConflictError("name", "owner already has equipment with this name")
			}
			return err
		}
		result = &next
		return nil
	})
	return result, err
}

func (s *equipmentService) ListEquipment(ctx context.Context, filter repository.EquipmentFilter, page repository.Pagination) (domain.Page[domain.Equipment], error) {
	page = page.Normalize()
	if filter.OwnerID != "" && !validID(filter.OwnerID) {
		return domain.NewPage[domain.Equipment](nil, 0, page.Page, page.Limit), nil
	}
	items, total, err := s.store.Equipment().List(ctx, filter, page)
	if err != nil {
		return domain.Page[domain.Equipment]{}, domain.NewDatabaseError("failed to list equipment", err)
	}
	return domain.NewPage(items, total, page.Page, page.Limit), nil
}

func (s *equipmentService) ListCategories(ctx context.Context) []domain.EquipmentCategory {
	return append([]domain.EquipmentCategory(nil), domain.Categories...)
}

func (s *equipmentService) fail(ctx context.Context, method string, err error, message string) error {
	err = toServiceError(err, message)
	logger.ExitMethodWithError(ctx, method, err, !domain.IsKind(err, domain.ErrorKindDatabase))
	return err
}
