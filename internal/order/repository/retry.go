package repository

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	apperrors "storefront/internal/errors"
)

// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms), etc.
var deadlockBackoffs = []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

func (r *MySQLOrderRepository) withDeadlockRetry(ctx context.Context, orderID string, fn func() error) error {
	maxAttempts := r.maxRetryAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !isDeadlockError(err) {
			return err
		}

		if attempt == maxAttempts {
			break
		}

		r.logger.Warn("deadlock detected, retrying",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", maxAttempts),
			zap.String("orderId", orderID),
		)

		if err := sleepWithJitter(ctx, backoffFor(attempt)); err != nil {
			return err
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded")
}

func backoffFor(attempt int) time.Duration {
	if attempt-1 < len(deadlockBackoffs) {
		return deadlockBackoffs[attempt-1]
	}
	return deadlockBackoffs[len(deadlockBackoffs)-1]
}

// sleepWithJitter waits base ±20%.
func sleepWithJitter(ctx context.Context, base time.Duration) error {
	if base <= 0 {
		return nil
	}
	wait := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
