// Package memory is an in-process store used for local runs and tests. All
// operations are serialised by one mutex, which a transaction holds until it
// finishes.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
)

type Store struct {
	mu           sync.Mutex
	equipment    map[string]domain.Equipment
	reservations map[string]domain.Reservation
	now          func() time.Time

	equipmentRepo   *equipmentRepository
	reservationRepo *reservationRepository
}

func NewStore() *Store {
	s := &Store{
		equipment:    make(map[string]domain.Equipment),
		reservations: make(map[string]domain.Reservation),
		now:          time.Now,
	}
	s.equipmentRepo = &equipmentRepository{s: s}
	s.reservationRepo = &reservationRepository{s: s}
	return s
}

// SetClock replaces the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Store) Equipment() repository.EquipmentRepository {
	return s.equipmentRepo
}

func (s *Store) Reservations() repository.ReservationRepository {
	return s.reservationRepo
}

// PingContext always succeeds; it lets the store stand in for a database in health checks.
func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	equipment := make(map[string]domain.Equipment, len(s.equipment))
	for k, v := range s.equipment {
		equipment[k] = v
	}
	reservations := make(map[string]domain.Reservation, len(s.reservations))
	for k, v := range s.reservations {
		reservations[k] = v
	}

	repos := repository.Repositories{
		Equipment:    &equipmentRepository{s: s, inTx: true},
		Reservations: &reservationRepository{s: s, inTx: true},
	}
	if err := fn(ctx, repos); err != nil {
		s.equipment = equipment
		s.reservations = reservations
		return err
	}
	return nil
}

// lock takes the store mutex unless the caller already holds it through a transaction.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func paginate[T any](items []T, page repository.Pagination) []T {
	start := int(page.Offset())
	if start >= len(items) {
		return nil
	}
	end := start + int(page.Limit)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type equipmentRepository struct {
	s    *Store
	inTx bool
}

func (r *equipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	defer r.s.lock(r.inTx)()
	for _, existing := range r.s.equipment {
		if existing.OwnerID == e.OwnerID && strings.EqualFold(existing.Name, e.Name) {
			return repository.ErrDuplicate
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := r.s.now()
	e.CreatedAt = now
	e.UpdatedAt = now
	r.s.equipment[e.ID] = cloneEquipment(*e)
	return nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	defer r.s.lock(r.inTx)()
	e, ok := r.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneEquipment(e)
	return &out, nil
}

func (r *equipmentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Equipment, error) {
	return r.GetByID(ctx, id)
}

func (r *equipmentRepository) Update(ctx context.Context, e *domain.Equipment) error {
	defer r.s.lock(r.inTx)()
	if _, ok := r.s.equipment[e.ID]; !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.equipment {
		if id != e.ID && existing.OwnerID == e.OwnerID && strings.EqualFold(existing.Name, e.Name) {
			return repository.ErrDuplicate
		}
	}
	e.UpdatedAt = r.s.now()
	r.s.equipment[e.ID] = cloneEquipment(*e)
	return nil
}

func (r *equipmentRepository) DecrementStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	defer r.s.lock(r.inTx)()
	e, ok := r.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.Status != domain.EquipmentStatusActive || e.AvailableQuantity < qty {
		return nil, repository.ErrInsufficientStock
	}
	e.AvailableQuantity -= qty
	e.UpdatedAt = r.s.now()
	r.s.equipment[id] = e
	out := cloneEquipment(e)
	return &out, nil
}

func (r *equipmentRepository) RestoreStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	defer r.s.lock(r.inTx)()
	e, ok := r.s.equipment[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.AvailableQuantity += qty
	e.UpdatedAt = r.s.now()
	r.s.equipment[id] = e
	out := cloneEquipment(e)
	return &out, nil
}

func (r *equipmentRepository) List(ctx context.Context, filter repository.EquipmentFilter, page repository.Pagination) ([]domain.Equipment, int32, error) {
	defer r.s.lock(r.inTx)()
	page = page.Normalize()

	var matched []domain.Equipment
	for _, e := range r.s.equipment {
		if filter.Matches(&e) {
			matched = append(matched, cloneEquipment(e))
		}
	}
	field, desc := page.SortKey(repository.EquipmentSortFields, "createdAt")
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return lessEquipment(&matched[j], &matched[i], field)
		}
		return lessEquipment(&matched[i], &matched[j], field)
	})
	return paginate(matched, page), int32(len(matched)), nil
}

func lessEquipment(a, b *domain.Equipment, field string) bool {
	switch field {
	case "name":
		return a.Name < b.Name
	case "dailyRate":
		return a.DailyRate.LessThan(b.DailyRate)
	case "availableQuantity":
		return a.AvailableQuantity < b.AvailableQuantity
	case "averageRating":
		return a.AverageRating < b.AverageRating
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func cloneEquipment(e domain.Equipment) domain.Equipment {
	e.Photos = append([]string(nil), e.Photos...)
	if e.RejectionReason != nil {
		reason := *e.RejectionReason
		e.RejectionReason = &reason
	}
	if e.ApprovedAt != nil {
		at := *e.ApprovedAt
		e.ApprovedAt = &at
	}
	return e
}

type reservationRepository struct {
	s    *Store
	inTx bool
}

func (r *reservationRepository) Create(ctx context.Context, rt *domain.Reservation) error {
	defer r.s.lock(r.inTx)()
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	if _, ok := r.s.reservations[rt.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	rt.CreatedAt = now
	rt.UpdatedAt = now
	r.s.reservations[rt.ID] = cloneReservation(*rt)
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	rt, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneReservation(rt)
	return &out, nil
}

func (r *reservationRepository) GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	rt, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if rt.Status != from {
		return nil, repository.ErrStaleState
	}
	rt.Status = to
	rt.UpdatedAt = r.s.now()
	r.s.reservations[id] = rt
	out := cloneReservation(rt)
	return &out, nil
}

func (r *reservationRepository) SetLateEndDate(ctx context.Context, id string, lateEnd time.Time) (*domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	rt, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	rt.LateEndDate = &lateEnd
	rt.UpdatedAt = r.s.now()
	r.s.reservations[id] = rt
	out := cloneReservation(rt)
	return &out, nil
}

func (r *reservationRepository) List(ctx context.Context, filter repository.ReservationFilter, page repository.Pagination) ([]domain.Reservation, int32, error) {
	defer r.s.lock(r.inTx)()
	page = page.Normalize()

	var matched []domain.Reservation
	for _, rt := range r.s.reservations {
		if filter.Matches(&rt) {
			matched = append(matched, cloneReservation(rt))
		}
	}
	field, desc := page.SortKey(repository.ReservationSortFields, "createdAt")
	sort.SliceStable(matched, func(i, j int) bool {
		if desc {
			return lessReservation(&matched[j], &matched[i], field)
		}
		return lessReservation(&matched[i], &matched[j], field)
	})
	return paginate(matched, page), int32(len(matched)), nil
}

func lessReservation(a, b *domain.Reservation, field string) bool {
	switch field {
	case "startDate":
		return a.StartDate.Before(b.StartDate)
	case "endDate":
		return a.EndDate.Before(b.EndDate)
	case "quantity":
		return a.Quantity < b.Quantity
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (r *reservationRepository) FindUnreturned(ctx context.Context, equipmentID string, now time.Time, excludeID string) ([]domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	var out []domain.Reservation
	for _, rt := range r.s.reservations {
		if rt.EquipmentID != equipmentID || rt.ID == excludeID || !rt.Status.HoldsStock() {
			continue
		}
		if rt.EffectiveEnd().Before(now) {
			out = append(out, cloneReservation(rt))
		}
	}
	return out, nil
}

func (r *reservationRepository) FindOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) ([]domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	var out []domain.Reservation
	for _, rt := range r.s.reservations {
		if rt.EquipmentID != equipmentID || rt.ID == excludeID || !isLive(rt.Status) {
			continue
		}
		if domain.Overlaps(rt.StartDate, rt.EffectiveEnd(), start, end) {
			out = append(out, cloneReservation(rt))
		}
	}
	return out, nil
}

func (r *reservationRepository) SumCommitted(ctx context.Context, equipmentID string) (int32, error) {
	defer r.s.lock(r.inTx)()
	var sum int32
	for _, rt := range r.s.reservations {
		if rt.EquipmentID == equipmentID && rt.Status.HoldsStock() {
			sum += rt.Quantity
		}
	}
	return sum, nil
}

func (r *reservationRepository) CountLive(ctx context.Context, equipmentID string, now time.Time) (int32, error) {
	defer r.s.lock(r.inTx)()
	var count int32
	for _, rt := range r.s.reservations {
		if rt.EquipmentID == equipmentID && isLive(rt.Status) && !rt.EffectiveEnd().Before(now) {
			count++
		}
	}
	return count, nil
}

func (r *reservationRepository) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	defer r.s.lock(r.inTx)()
	var out []domain.Reservation
	for id, rt := range r.s.reservations {
		if !isLive(rt.Status) || rt.LateEndDate != nil || !rt.EndDate.Before(now) {
			continue
		}
		rt.Status = domain.ReservationStatusOverdue
		rt.UpdatedAt = r.s.now()
		r.s.reservations[id] = rt
		out = append(out, cloneReservation(rt))
	}
	return out, nil
}

func isLive(s domain.ReservationStatus) bool {
	for _, live := range domain.LiveStatuses {
		if s == live {
			return true
		}
	}
	return false
}

func cloneReservation(rt domain.Reservation) domain.Reservation {
	if rt.LateEndDate != nil {
		late := *rt.LateEndDate
		rt.LateEndDate = &late
	}
	return rt
}
