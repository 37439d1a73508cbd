package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/repository"
)

var reservationRowColumns = []string{"id", "equipment_id", "requester_id", "start_date", "end_date", "late_end_date",
	"quantity", "total_value", "delivery_address", "status", "created_at", "updated_at"}

func reservationRows(id, status string, lateEnd any) *sqlmock.Rows {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationRowColumns).
		AddRow(id, "eq-1", "user-1", start, start.Add(48*time.Hour), lateEnd, 2, "102.00", "1 Main St", status, start, start)
}

func TestReservationRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)

	late := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = $1")).
		WithArgs("r-1").
		WillReturnRows(reservationRows("r-1", "confirmed", late))

	r, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, r.Status)
	require.NotNil(t, r.LateEndDate)
	assert.True(t, late.Equal(*r.LateEndDate))
	assert.True(t, late.Equal(r.EffectiveEnd()))
	assert.Equal(t, "102", r.TotalValue.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_GetByIDMalformed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = $1")).
		WithArgs("abc").
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})

	_, err := repo.GetByID(context.Background(), "abc")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
			WithArgs("r-1", "pending", "cancelled", sqlmock.AnyArg()).
			WillReturnRows(reservationRows("r-1", "cancelled", nil))

		r, err := repo.UpdateStatus(ctx, "r-1", domain.ReservationStatusPending, domain.ReservationStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationStatusCancelled, r.Status)
		assert.Nil(t, r.LateEndDate)
	})

	t.Run("Stale", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs("r-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.UpdateStatus(ctx, "r-1", domain.ReservationStatusPending, domain.ReservationStatusCancelled)
		assert.ErrorIs(t, err, repository.ErrStaleState)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
			WithArgs("r-x").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.UpdateStatus(ctx, "r-x", domain.ReservationStatusPending, domain.ReservationStatusCancelled)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_FindOverlapping(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)

	start := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("start_date <= $4 AND COALESCE(late_end_date, end_date) >= $3")).
		WithArgs("eq-1", sqlmock.AnyArg(), start, end, "").
		WillReturnRows(reservationRows("r-1", "pending", nil))

	items, err := repo.FindOverlapping(context.Background(), "eq-1", start, end, "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "r-1", items[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_SumCommitted(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(quantity), 0)")).
		WithArgs("eq-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(4))

	sum, err := repo.SumCommitted(context.Background(), "eq-1")
	require.NoError(t, err)
	assert.Equal(t, int32(4), sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_MarkOverdue(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("late_end_date IS NULL AND end_date < $2")).
		WithArgs("overdue", now, sqlmock.AnyArg()).
		WillReturnRows(reservationRows("r-1", "overdue", nil).AddRow(
			"r-2", "eq-2", "user-2", now.Add(-72*time.Hour), now.Add(-24*time.Hour), nil, 1, "10", "2 Elm St", "overdue", now, now))

	items, err := repo.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepository(db)

	filter := repository.ReservationFilter{EquipmentID: "eq-1", Status: domain.ReservationStatusPending}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM reservations WHERE equipment_id = $1 AND status = $2")).
		WithArgs("eq-1", "pending").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY start_date ASC, id ASC LIMIT $3 OFFSET $4")).
		WithArgs("eq-1", "pending", int32(20), int32(0)).
		WillReturnRows(reservationRows("r-1", "pending", nil))

	items, total, err := repo.List(context.Background(), filter, repository.Pagination{Sort: "startDate"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Len(t, items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTx(t *testing.T) {
	txRetryDelays = []time.Duration{time.Millisecond}
	t.Cleanup(func() {
		txRetryDelays = []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 300 * time.Millisecond}
	})

	t.Run("Commit", func(t *testing.T) {
		db, mock := newMock(t)
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("eq-1").WillReturnRows(equipmentRows("eq-1", 3, "active"))
		mock.ExpectCommit()

		err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
			_, err := repos.Equipment.GetForUpdate(ctx, "eq-1")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		db, mock := newMock(t)
		store := NewStore(db)
		failure := errors.New("rejected")

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
			return failure
		})
		assert.ErrorIs(t, err, failure)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackFailureIsReported", func(t *testing.T) {
		db, mock := newMock(t)
		store := NewStore(db)
		failure := errors.New("rejected")

		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection reset"))

		err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
			return failure
		})
		assert.ErrorIs(t, err, failure)
		var rbErr *RollbackError
		assert.ErrorAs(t, err, &rbErr)
	})

	t.Run("RetriesSerializationFailure", func(t *testing.T) {
		db, mock := newMock(t)
		store := NewStore(db)

		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectCommit()

		attempts := 0
		err := store.WithinTx(context.Background(), func(ctx context.Context, repos repository.Repositories) error {
			attempts++
			if attempts == 1 {
				return &pq.Error{Code: "40001"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
