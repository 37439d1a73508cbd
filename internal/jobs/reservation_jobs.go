package jobs

import (
	"context"
	"fmt"

	"equipment-rental-backend/internal/logger"
)

// MarkOverdueReservations flips reservations past their end date to overdue.
// Running it twice in a row marks nothing the second time. Failures are
// logged; the next scheduled run retries.
func (jr *JobRunner) MarkOverdueReservations() {
	_ = jr.markOverdueReservations()
}

func (jr *JobRunner) markOverdueReservations() error {
	return jr.runWithRecovery("MarkOverdueReservations", func(ctx context.Context) error {
		count, err := jr.reservations.SweepOverdue(ctx, jr.now())
		if err != nil {
			return fmt.Errorf("mark overdue reservations: %w", err)
		}
		logger.Info("Marked reservations as overdue", "count", count)
		return nil
	})
}
