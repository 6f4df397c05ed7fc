package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

type MySQLCouponRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQLCouponRepository(db *sql.DB) *MySQLCouponRepository {
	return &MySQLCouponRepository{db: db, now: time.Now}
}

// GetCoupon returns nil, nil for unknown codes. IsValid reflects the active
// flag, expiry and remaining usage at read time.
func (r *MySQLCouponRepository) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, type, value, minOrderAmount, maxDiscount,
		       isActive, expiresAt, usageLimit, usedCount
		FROM Coupons
		WHERE code = ?
	`

	var (
		c           domain.Coupon
		couponType  string
		maxDiscount decimal.NullDecimal
		isActive    bool
		expiresAt   sql.NullTime
		usageLimit  sql.NullInt64
		usedCount   int64
	)
	err := r.db.QueryRowContext(ctx, query, normalizeCode(code)).Scan(
		&c.Code, &couponType, &c.Value, &c.MinOrderAmount, &maxDiscount,
		&isActive, &expiresAt, &usageLimit, &usedCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying coupon by code: %w", err)
	}

	c.Type = domain.CouponType(couponType)
	if maxDiscount.Valid {
		v := maxDiscount.Decimal
		c.MaxDiscount = &v
	}
	c.IsValid = isCouponValid(isActive, expiresAt, usageLimit, usedCount, r.now())

	return &c, nil
}

// Redeem consumes one use of the coupon. It fails with a ConflictError when
// the coupon is exhausted, expired or inactive.
func (r *MySQLCouponRepository) Redeem(ctx context.Context, code string) error {
	query := `
		UPDATE Coupons
		SET usedCount = usedCount + 1
		WHERE code = ?
		  AND isActive = 1
		  AND (expiresAt IS NULL OR expiresAt > ?)
		  AND (usageLimit IS NULL OR usedCount < usageLimit)
	`

	result, err := r.db.ExecContext(ctx, query, normalizeCode(code), r.now().UTC())
	if err != nil {
		return fmt.Errorf("redeeming coupon: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("coupon %s can no longer be redeemed", code))
	}

	return nil
}

// Release gives back one use taken by Redeem when the order it was reserved
// for could not be stored.
func (r *MySQLCouponRepository) Release(ctx context.Context, code string) error {
	query := `
		UPDATE Coupons
		SET usedCount = usedCount - 1
		WHERE code = ? AND usedCount > 0
	`

	if _, err := r.db.ExecContext(ctx, query, normalizeCode(code)); err != nil {
		return fmt.Errorf("releasing coupon: %w", err)
	}
	return nil
}

func isCouponValid(isActive bool, expiresAt sql.NullTime, usageLimit sql.NullInt64, usedCount int64, now time.Time) bool {
	if !isActive {
		return false
	}
	if expiresAt.Valid && !now.Before(expiresAt.Time) {
		return false
	}
	if usageLimit.Valid && usedCount >= usageLimit.Int64 {
		return false
	}
	return true
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
