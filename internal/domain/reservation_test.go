package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	d := func(n int) time.Time { return time.Date(2025, 5, n, 0, 0, 0, 0, time.UTC) }

	assert.True(t, Overlaps(d(1), d(3), d(2), d(4)))
	assert.True(t, Overlaps(d(1), d(3), d(3), d(5)), "shared endpoint counts")
	assert.True(t, Overlaps(d(2), d(3), d(1), d(5)))
	assert.False(t, Overlaps(d(1), d(2), d(3), d(4)))
	assert.False(t, Overlaps(d(5), d(6), d(1), d(4)))
}

func TestEffectiveEnd(t *testing.T) {
	end := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	late := end.Add(48 * time.Hour)

	r := Reservation{EndDate: end}
	assert.Equal(t, end, r.EffectiveEnd())
	r.LateEndDate = &late
	assert.Equal(t, late, r.EffectiveEnd())
}

func TestReservationStatus(t *testing.T) {
	assert.True(t, CanTransitionReservation(ReservationStatusPending, ReservationStatusConfirmed))
	assert.True(t, CanTransitionReservation(ReservationStatusConfirmed, ReservationStatusReturned))
	assert.True(t, CanTransitionReservation(ReservationStatusOverdue, ReservationStatusReturned))
	assert.False(t, CanTransitionReservation(ReservationStatusCancelled, ReservationStatusPending))
	assert.False(t, CanTransitionReservation(ReservationStatusOverdue, ReservationStatusCancelled))

	assert.True(t, ReservationStatusOverdue.HoldsStock())
	assert.False(t, ReservationStatusReturned.HoldsStock())
	assert.True(t, ReservationStatusCancelled.Final())
	assert.False(t, ReservationStatus("lost").Valid())
}

func TestErrors(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(NewDatabaseError("failed to load equipment", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorKindDatabase, KindOf(err))
	de, _ := AsError(err)
	assert.Equal(t, "dial tcp: refused", de.Details)

	assert.Equal(t, "validation: bad (quantity)", NewValidationError("quantity", "bad").Error())
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, 41, 2, 20)
	assert.Equal(t, []int{}, p.Docs)
	assert.Equal(t, int32(3), p.TotalPages)

	p = NewPage([]int{1}, 0, 1, 0)
	assert.Equal(t, int32(0), p.TotalPages)
}
