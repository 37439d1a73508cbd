package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusOverdue   ReservationStatus = "overdue"
	ReservationStatusReturned  ReservationStatus = "returned"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusCancelled,
		ReservationStatusOverdue, ReservationStatusReturned:
		return true
	}
	return false
}

// HoldsStock reports whether a reservation in this status still has units
// deducted from the equipment's available quantity.
func (s ReservationStatus) HoldsStock() bool {
	switch s {
	case ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusOverdue:
		return true
	}
	return false
}

// Final reports whether no further status change is allowed.
func (s ReservationStatus) Final() bool {
	return s == ReservationStatusCancelled || s == ReservationStatusReturned
}

var (
	// LiveStatuses are the statuses that block overlapping bookings and deactivation.
	LiveStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed}
	// HoldingStatuses are the statuses whose quantity is committed stock.
	HoldingStatuses = []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed, ReservationStatusOverdue}
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCancelled, ReservationStatusOverdue, ReservationStatusReturned},
	ReservationStatusOverdue:   {ReservationStatusReturned},
}

// CanTransitionReservation reports whether an explicit status update from
// current to target is allowed. The overdue sweep is not bound by this table.
func CanTransitionReservation(current, target ReservationStatus) bool {
	for _, next := range reservationTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID              string            `json:"id"`
	EquipmentID     string            `json:"equipmentId"`
	RequesterID     string            `json:"requesterId"`
	StartDate       time.Time         `json:"startDate"`
	EndDate         time.Time         `json:"endDate"`
	LateEndDate     *time.Time        `json:"lateEndDate,omitempty"`
	Quantity        int32             `json:"quantity"`
	TotalValue      decimal.Decimal   `json:"totalValue"`
	DeliveryAddress string            `json:"deliveryAddress"`
	Status          ReservationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// EffectiveEnd is the late-return date when one was agreed, otherwise the end date.
func (r *Reservation) EffectiveEnd() time.Time {
	return EffectiveEnd(r.EndDate, r.LateEndDate)
}

func EffectiveEnd(end time.Time, lateEnd *time.Time) time.Time {
	if lateEnd != nil {
		return *lateEnd
	}
	return end
}

// Overlaps uses closed intervals: both endpoints count as booked.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !aEnd.Before(bStart)
}

// ReservationPatch is an explicit update. Nil fields are left unchanged.
type ReservationPatch struct {
	Status      *ReservationStatus `json:"status,omitempty"`
	LateEndDate *time.Time         `json:"lateEndDate,omitempty"`
}

// ReservationRequest is the typed input for admission.
type ReservationRequest struct {
	EquipmentID     string
	RequesterID     string
	StartDate       time.Time
	EndDate         time.Time
	LateEndDate     *time.Time
	Quantity        int32
	DeliveryAddress string
}

// AvailabilityQuery asks whether Quantity units can be booked for the window.
// ExcludeReservationID re-checks an existing reservation against the others.
type AvailabilityQuery struct {
	EquipmentID          string
	Quantity             int32
	StartDate            time.Time
	EndDate              time.Time
	LateEndDate          *time.Time
	ExcludeReservationID string
}
