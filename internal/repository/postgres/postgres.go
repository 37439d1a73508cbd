package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"equipment-rental-backend/internal/logger"
	"equipment-rental-backend/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db           *sql.DB
	equipment    repository.EquipmentRepository
	reservations repository.ReservationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		equipment:    NewEquipmentRepository(db),
		reservations: NewReservationRepository(db),
	}
}

func (s *Store) Equipment() repository.EquipmentRepository {
	return s.equipment
}

func (s *Store) Reservations() repository.ReservationRepository {
	return s.reservations
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

var txRetryDelays = []time.Duration{50 * time.Millisecond, 150 * time.Millisecond, 300 * time.Millisecond}

// WithinTx runs fn in a read-committed transaction. Serialization failures and
// deadlocks are retried with the whole of fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= len(txRetryDelays) {
			return err
		}
		logger.WarnContext(ctx, "Retrying transaction", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(txRetryDelays[attempt]):
		}
	}
}

func (s *Store) runTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	repos := repository.Repositories{
		Equipment:    &equipmentRepository{db: tx},
		Reservations: &reservationRepository{db: tx},
	}
	if err := fn(ctx, repos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "Transaction rollback failed, manual reconciliation may be required", "error", err, "rollback_error", rbErr)
			return errors.Join(err, &RollbackError{Err: rbErr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RollbackError marks a transaction whose rollback itself failed.
type RollbackError struct {
	Err error
}

func (e *RollbackError) Error() string {
	return "rollback failed: " + e.Err.Error()
}

func (e *RollbackError) Unwrap() error {
	return e.Err
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgerrcode.SerializationFailure || code == pgerrcode.DeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}

// isMalformedID matches a uuid column compared against text that does not
// parse as one.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.InvalidTextRepresentation
}

type rowScanner interface {
	Scan(dest ...any) error
}
