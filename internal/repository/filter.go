package repository

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"equipment-rental-backend/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination selects one page of a listing. Sort is a field name, prefixed
// with "-" for descending order.
type Pagination struct {
	Page  int32
	Limit int32
	Sort  string
}

// Normalize fills defaults and clamps the limit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int32 {
	return (p.Page - 1) * p.Limit
}

// SortKey splits Sort into a field and direction, falling back to def when
// the field is not in allowed.
func (p Pagination) SortKey(allowed []string, def string) (field string, desc bool) {
	field = p.Sort
	if strings.HasPrefix(field, "-") {
		desc = true
		field = field[1:]
	}
	for _, a := range allowed {
		if a == field {
			return field, desc
		}
	}
	return def, true
}

var (
	EquipmentSortFields   = []string{"createdAt", "name", "dailyRate", "availableQuantity", "averageRating"}
	ReservationSortFields = []string{"createdAt", "startDate", "endDate", "quantity"}
)

// EquipmentFilter holds optional predicates; zero values are not applied.
type EquipmentFilter struct {
	OwnerID      string
	Category     domain.EquipmentCategory
	Status       domain.EquipmentStatus
	MinRate      *decimal.Decimal
	MaxRate      *decimal.Decimal
	NameContains string
}

func (f EquipmentFilter) Matches(e *domain.Equipment) bool {
	if f.OwnerID != "" && e.OwnerID != f.OwnerID {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.MinRate != nil && e.DailyRate.LessThan(*f.MinRate) {
		return false
	}
	if f.MaxRate != nil && e.DailyRate.GreaterThan(*f.MaxRate) {
		return false
	}
	if f.NameContains != "" && !containsFold(e.Name, f.NameContains) {
		return false
	}
	return true
}

// ReservationFilter holds optional predicates; zero values are not applied.
// StartFrom and EndBefore bound the reservation window.
type ReservationFilter struct {
	EquipmentID     string
	RequesterID     string
	Status          domain.ReservationStatus
	StartFrom       *time.Time
	EndBefore       *time.Time
	AddressContains string
}

func (f ReservationFilter) Matches(r *domain.Reservation) bool {
	if f.EquipmentID != "" && r.EquipmentID != f.EquipmentID {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.StartFrom != nil && r.StartDate.Before(*f.StartFrom) {
		return false
	}
	if f.EndBefore != nil && !r.EffectiveEnd().Before(*f.EndBefore) {
		return false
	}
	if f.AddressContains != "" && !containsFold(r.DeliveryAddress, f.AddressContains) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
