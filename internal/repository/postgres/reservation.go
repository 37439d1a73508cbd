package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"equipment-rental-backend/internal/domain"
	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/repository"
)

const reservationColumns = `id, equipment_id, requester_id, start_date, end_date, late_end_date, quantity, total_value, delivery_address, status, created_at, updated_at`

type reservationRepository struct {
	db querier
}

func NewReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	r := &domain.Reservation{}
	var lateEnd sql.NullTime
	err := row.Scan(&r.ID, &r.EquipmentID, &r.RequesterID, &r.StartDate, &r.EndDate, &lateEnd,
		&r.Quantity, &r.TotalValue, &r.DeliveryAddress, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lateEnd.Valid {
		t := lateEnd.Time
		r.LateEndDate = &t
	}
	return r, nil
}

func (r *reservationRepository) Create(ctx context.Context, rt *domain.Reservation) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO reservations (id, equipment_id, requester_id, start_date, end_date, late_end_date, quantity, total_value, delivery_address, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	logger.DatabaseCall("reservations.Create", query, "reservation_id", rt.ID, "equipment_id", rt.EquipmentID)
	_, err := r.db.ExecContext(ctx, query, rt.ID, rt.EquipmentID, rt.RequesterID, rt.StartDate, rt.EndDate, rt.LateEndDate,
		rt.Quantity, rt.TotalValue, rt.DeliveryAddress, rt.Status, now)
	if err != nil {
		logger.DatabaseResult("reservations.Create", 0, err)
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	logger.DatabaseResult("reservations.Create", 1, nil)
	rt.CreatedAt = now
	rt.UpdatedAt = now
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *reservationRepository) GetForUpdate(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.get(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *reservationRepository) get(ctx context.Context, query, id string) (*domain.Reservation, error) {
	rt, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return rt, nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error) {
	query := `UPDATE reservations SET status = $3, updated_at = $4
	          WHERE id = $1 AND status = $2
	          RETURNING ` + reservationColumns
	logger.DatabaseCall("reservations.UpdateStatus", query, "reservation_id", id, "from", from, "to", to)
	rt, err := scanReservation(r.db.QueryRowContext(ctx, query, id, from, to, time.Now().UTC()))
	if err == nil {
		logger.DatabaseResult("reservations.UpdateStatus", 1, nil)
		return rt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("reservations.UpdateStatus", 0, err)
		return nil, fmt.Errorf("update reservation status: %w", err)
	}
	logger.DatabaseResult("reservations.UpdateStatus", 0, nil)

	// No row matched: tell a missing reservation apart from a concurrent transition.
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM reservations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check reservation: %w", err)
	}
	if !exists {
		return nil, repository.ErrNotFound
	}
	return nil, repository.ErrStaleState
}

func (r *reservationRepository) SetLateEndDate(ctx context.Context, id string, lateEnd time.Time) (*domain.Reservation, error) {
	query := `UPDATE reservations SET late_end_date = $2, updated_at = $3
	          WHERE id = $1
	          RETURNING ` + reservationColumns
	rt, err := scanReservation(r.db.QueryRowContext(ctx, query, id, lateEnd, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("set late end date: %w", err)
	}
	return rt, nil
}

func (r *reservationRepository) List(ctx context.Context, filter repository.ReservationFilter, page repository.Pagination) ([]domain.Reservation, int32, error) {
	page = page.Normalize()
	where := reservationWhere(filter)

	var count int32
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM reservations`+where.String(), where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}

	n := where.next()
	query := `SELECT ` + reservationColumns + ` FROM reservations` + where.String() +
		orderBy(page, repository.ReservationSortFields, reservationSortColumns) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
	args := append(where.args, page.Limit, page.Offset())

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	return items, count, nil
}

func (r *reservationRepository) FindUnreturned(ctx context.Context, equipmentID string, now time.Time, excludeID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE equipment_id = $1 AND status = ANY($2) AND COALESCE(late_end_date, end_date) < $3 AND id::text <> $4`
	items, err := r.query(ctx, query, equipmentID, pq.Array(statusStrings(domain.HoldingStatuses)), now, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find unreturned reservations: %w", err)
	}
	return items, nil
}

func (r *reservationRepository) FindOverlapping(ctx context.Context, equipmentID string, start, end time.Time, excludeID string) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE equipment_id = $1 AND status = ANY($2) AND start_date <= $4 AND COALESCE(late_end_date, end_date) >= $3 AND id::text <> $5`
	items, err := r.query(ctx, query, equipmentID, pq.Array(statusStrings(domain.LiveStatuses)), start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find overlapping reservations: %w", err)
	}
	return items, nil
}

func (r *reservationRepository) SumCommitted(ctx context.Context, equipmentID string) (int32, error) {
	var sum int32
	query := `SELECT COALESCE(SUM(quantity), 0) FROM reservations WHERE equipment_id = $1 AND status = ANY($2)`
	if err := r.db.QueryRowContext(ctx, query, equipmentID, pq.Array(statusStrings(domain.HoldingStatuses))).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum committed quantity: %w", err)
	}
	return sum, nil
}

func (r *reservationRepository) CountLive(ctx context.Context, equipmentID string, now time.Time) (int32, error) {
	var count int32
	query := `SELECT count(*) FROM reservations WHERE equipment_id = $1 AND status = ANY($2) AND COALESCE(late_end_date, end_date) >= $3`
	if err := r.db.QueryRowContext(ctx, query, equipmentID, pq.Array(statusStrings(domain.LiveStatuses)), now).Scan(&count); err != nil {
		return 0, fmt.Errorf("count live reservations: %w", err)
	}
	return count, nil
}

func (r *reservationRepository) MarkOverdue(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	query := `UPDATE reservations SET status = $1, updated_at = $2
	          WHERE status = ANY($3) AND late_end_date IS NULL AND end_date < $2
	          RETURNING ` + reservationColumns
	logger.DatabaseCall("reservations.MarkOverdue", query, "now", now)
	items, err := r.query(ctx, query, domain.ReservationStatusOverdue, now, pq.Array(statusStrings(domain.LiveStatuses)))
	if err != nil {
		logger.DatabaseResult("reservations.MarkOverdue", 0, err)
		return nil, fmt.Errorf("mark overdue reservations: %w", err)
	}
	logger.DatabaseResult("reservations.MarkOverdue", int64(len(items)), nil)
	return items, nil
}

func (r *reservationRepository) query(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Reservation
	for rows.Next() {
		rt, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rt)
	}
	return items, rows.Err()
}

func statusStrings(statuses []domain.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
