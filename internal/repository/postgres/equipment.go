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

const equipmentColumns = `id, owner_id, name, description, category, daily_rate, photos, available_quantity, status, rejection_reason, approved_at, average_rating, created_at, updated_at`

type equipmentRepository struct {
	db querier
}

func NewEquipmentRepository(db *sql.DB) repository.EquipmentRepository {
	return &equipmentRepository{db: db}
}

func scanEquipment(row rowScanner) (*domain.Equipment, error) {
	e := &domain.Equipment{}
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Description, &e.Category, &e.DailyRate, pq.Array(&e.Photos),
		&e.AvailableQuantity, &e.Status, &e.RejectionReason, &e.ApprovedAt, &e.AverageRating, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *equipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	query := `INSERT INTO equipment (id, owner_id, name, description, category, daily_rate, photos, available_quantity, status, rejection_reason, approved_at, average_rating, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`
	logger.DatabaseCall("equipment.Create", query, "equipment_id", e.ID)
	_, err := r.db.ExecContext(ctx, query, e.ID, e.OwnerID, e.Name, e.Description, e.Category, e.DailyRate, pq.Array(e.Photos),
		e.AvailableQuantity, e.Status, e.RejectionReason, e.ApprovedAt, e.AverageRating, now)
	if err != nil {
		logger.DatabaseResult("equipment.Create", 0, err)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: equipment %q", repository.ErrDuplicate, e.Name)
		}
		return fmt.Errorf("insert equipment: %w", err)
	}
	logger.DatabaseResult("equipment.Create", 1, nil)
	e.CreatedAt = now
	e.UpdatedAt = now
	return nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	return r.get(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1`, id)
}

func (r *equipmentRepository) GetForUpdate(ctx context.Context, id string) (*domain.Equipment, error) {
	return r.get(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = $1 FOR UPDATE`, id)
}

func (r *equipmentRepository) get(ctx context.Context, query, id string) (*domain.Equipment, error) {
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return e, nil
}

func (r *equipmentRepository) Update(ctx context.Context, e *domain.Equipment) error {
	now := time.Now().UTC()
	query := `UPDATE equipment SET name=$1, description=$2, category=$3, daily_rate=$4, photos=$5, available_quantity=$6, status=$7, rejection_reason=$8, approved_at=$9, updated_at=$10 WHERE id=$11`
	res, err := r.db.ExecContext(ctx, query, e.Name, e.Description, e.Category, e.DailyRate, pq.Array(e.Photos),
		e.AvailableQuantity, e.Status, e.RejectionReason, e.ApprovedAt, now, e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: equipment %q", repository.ErrDuplicate, e.Name)
		}
		return fmt.Errorf("update equipment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update equipment: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	e.UpdatedAt = now
	return nil
}

func (r *equipmentRepository) DecrementStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	query := `UPDATE equipment SET available_quantity = available_quantity - $2, updated_at = $3
	          WHERE id = $1 AND status = 'active' AND available_quantity >= $2
	          RETURNING ` + equipmentColumns
	logger.DatabaseCall("equipment.DecrementStock", query, "equipment_id", id, "quantity", qty)
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id, qty, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.DatabaseResult("equipment.DecrementStock", 0, nil)
			return nil, repository.ErrInsufficientStock
		}
		logger.DatabaseResult("equipment.DecrementStock", 0, err)
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	logger.DatabaseResult("equipment.DecrementStock", 1, nil)
	return e, nil
}

func (r *equipmentRepository) RestoreStock(ctx context.Context, id string, qty int32) (*domain.Equipment, error) {
	query := `UPDATE equipment SET available_quantity = available_quantity + $2, updated_at = $3
	          WHERE id = $1
	          RETURNING ` + equipmentColumns
	e, err := scanEquipment(r.db.QueryRowContext(ctx, query, id, qty, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("restore stock: %w", err)
	}
	return e, nil
}

func (r *equipmentRepository) List(ctx context.Context, filter repository.EquipmentFilter, page repository.Pagination) ([]domain.Equipment, int32, error) {
	page = page.Normalize()
	where := equipmentWhere(filter)

	var count int32
	countSQL := `SELECT count(*) FROM equipment` + where.String()
	if err := r.db.QueryRowContext(ctx, countSQL, where.args...).Scan(&count); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}

	n := where.next()
	query := `SELECT ` + equipmentColumns + ` FROM equipment` + where.String() +
		orderBy(page, repository.EquipmentSortFields, equipmentSortColumns) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n, n+1)
	args := append(where.args, page.Limit, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}
	defer rows.Close()

	var items []domain.Equipment
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan equipment: %w", err)
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}
	return items, count, nil
}
