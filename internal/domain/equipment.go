package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EquipmentStatus string

const (
	EquipmentStatusPending  EquipmentStatus = "pending"
	EquipmentStatusActive   EquipmentStatus = "active"
	EquipmentStatusInactive EquipmentStatus = "inactive"
)

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentStatusPending, EquipmentStatusActive, EquipmentStatusInactive:
		return true
	}
	return false
}

type EquipmentCategory string

const (
	CategoryHandTools  EquipmentCategory = "hand-tools"
	CategoryPowerTools EquipmentCategory = "power-tools"
	CategoryGardening  EquipmentCategory = "gardening"
	CategoryPlumbing   EquipmentCategory = "plumbing"
	CategoryElectrical EquipmentCategory = "electrical"
	CategoryAutomotive EquipmentCategory = "automotive"
	CategoryPainting   EquipmentCategory = "painting"
	CategoryCleaning   EquipmentCategory = "cleaning"
)

// Categories is the closed set of listing categories, in display order.
var Categories = []EquipmentCategory{
	CategoryHandTools,
	CategoryPowerTools,
	CategoryGardening,
	CategoryPlumbing,
	CategoryElectrical,
	CategoryAutomotive,
	CategoryPainting,
	CategoryCleaning,
}

func (c EquipmentCategory) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Equipment struct {
	ID                string            `json:"id"`
	OwnerID           string            `json:"ownerId"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Category          EquipmentCategory `json:"category"`
	DailyRate         decimal.Decimal   `json:"dailyRate"`
	Photos            []string          `json:"photos"`
	AvailableQuantity int32             `json:"availableQuantity"`
	Status            EquipmentStatus   `json:"status"`
	RejectionReason   *string           `json:"rejectionReason,omitempty"`
	ApprovedAt        *time.Time        `json:"approvedAt,omitempty"`
	AverageRating     float64           `json:"averageRating"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// EquipmentPatch is a partial edit. A nil field is not part of the edit.
type EquipmentPatch struct {
	Name              *string            `json:"name,omitempty"`
	Description       *string            `json:"description,omitempty"`
	Category          *EquipmentCategory `json:"category,omitempty"`
	DailyRate         *decimal.Decimal   `json:"dailyRate,omitempty"`
	Photos            []string           `json:"photos,omitempty"`
	AvailableQuantity *int32             `json:"availableQuantity,omitempty"`
	Status            *EquipmentStatus   `json:"status,omitempty"`
}

// Fields lists the names of the fields present in the patch, sorted.
func (p EquipmentPatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.Category != nil {
		fields = append(fields, "category")
	}
	if p.DailyRate != nil {
		fields = append(fields, "dailyRate")
	}
	if p.Photos != nil {
		fields = append(fields, "photos")
	}
	if p.AvailableQuantity != nil {
		fields = append(fields, "availableQuantity")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	sort.Strings(fields)
	return fields
}

// editableWhileActive is the allow-list of fields an owner may change on an active listing.
var editableWhileActive = map[string]bool{
	"dailyRate":         true,
	"availableQuantity": true,
	"status":            true,
}

var equipmentTransitions = map[EquipmentStatus][]EquipmentStatus{
	EquipmentStatusPending:  {EquipmentStatusActive, EquipmentStatusInactive},
	EquipmentStatusActive:   {EquipmentStatusInactive},
	EquipmentStatusInactive: {EquipmentStatusActive},
}

// CanTransition reports whether a listing may move from current to target.
func CanTransition(current, target EquipmentStatus) bool {
	for _, next := range equipmentTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

// Validate checks a newly submitted listing.
func (e *Equipment) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if !e.Category.Valid() {
		return NewValidationError("category", "unknown category")
	}
	if !e.DailyRate.IsPositive() {
		return NewValidationError("dailyRate", "daily rate must be positive")
	}
	if len(e.Photos) == 0 {
		return NewValidationError("photos", "at least one photo is required")
	}
	for _, p := range e.Photos {
		if strings.TrimSpace(p) == "" {
			return NewValidationError("photos", "photo url must not be empty")
		}
	}
	if e.AvailableQuantity < 0 {
		return NewValidationError("availableQuantity", "available quantity cannot be negative")
	}
	return nil
}

// Deactivates reports whether applying p moves the listing to inactive.
func (p EquipmentPatch) Deactivates() bool {
	return p.Status != nil && *p.Status == EquipmentStatusInactive
}

// ApplyEdit returns a copy of e with the patch applied, enforcing the
// per-state edit policy. Live-booking checks for deactivation are the
// caller's job since they need the reservation store.
func (e Equipment) ApplyEdit(p EquipmentPatch, now time.Time) (Equipment, error) {
	fields := p.Fields()
	if len(fields) == 0 {
		return e, NewValidationError("", "edit contains no fields")
	}

	switch e.Status {
	case EquipmentStatusPending, EquipmentStatusInactive:
		if len(fields) != 1 || p.Status == nil || *p.Status != EquipmentStatusActive {
			if e.Status == EquipmentStatusPending {
				return e, NewValidationError("status", "equipment pending, awaiting approval")
			}
			if p.Deactivates() && len(fields) == 1 {
				return e, NewValidationError("status", "equipment already inactive")
			}
			return e, NewValidationError("status", "equipment inactive, awaiting re-approval")
		}
		return e.Approve(now)
	case EquipmentStatusActive:
	default:
		return e, NewValidationError("status", "unknown equipment status")
	}

	var rejected []string
	for _, f := range fields {
		if !editableWhileActive[f] {
			rejected = append(rejected, f)
		}
	}
	if len(rejected) > 0 {
		return e, NewValidationError(strings.Join(rejected, ","), "fields cannot be edited on an active listing: "+strings.Join(rejected, ", "))
	}

	next := e
	if p.DailyRate != nil {
		if !p.DailyRate.IsPositive() {
			return e, NewValidationError("dailyRate", "daily rate must be positive")
		}
		next.DailyRate = *p.DailyRate
	}
	if p.AvailableQuantity != nil {
		if *p.AvailableQuantity < 0 {
			return e, NewValidationError("availableQuantity", "available quantity cannot be negative")
		}
		next.AvailableQuantity = *p.AvailableQuantity
	}
	if p.Status != nil && *p.Status != e.Status {
		if !p.Status.Valid() || !CanTransition(e.Status, *p.Status) {
			return e, NewValidationError("status", "illegal status transition from "+string(e.Status)+" to "+string(*p.Status))
		}
		next.Status = *p.Status
	} else if p.Status != nil && len(fields) == 1 {
		return e, NewValidationError("status", "equipment already active")
	}
	next.UpdatedAt = now
	return next, nil
}

// Approve activates the listing.
func (e Equipment) Approve(now time.Time) (Equipment, error) {
	if e.Status == EquipmentStatusActive {
		return e, NewValidationError("status", "equipment already active")
	}
	if !CanTransition(e.Status, EquipmentStatusActive) {
		return e, NewValidationError("status", "equipment cannot be approved from "+string(e.Status))
	}
	next := e
	next.Status = EquipmentStatusActive
	approvedAt := now
	next.ApprovedAt = &approvedAt
	next.RejectionReason = nil
	next.UpdatedAt = now
	return next, nil
}

// Reject deactivates the listing and records why.
func (e Equipment) Reject(reason string, now time.Time) (Equipment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return e, NewValidationError("rejectionReason", "rejection reason is required")
	}
	if e.Status == EquipmentStatusInactive {
		return e, NewValidationError("status", "equipment already inactive")
	}
	next := e
	next.Status = EquipmentStatusInactive
	next.RejectionReason = &reason
	next.UpdatedAt = now
	return next, nil
}
