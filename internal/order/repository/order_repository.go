package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

const orderColumns = `
	id, buyerId, buyerEmail, productId, subProductId, accountInfo,
	baseAmount, discount, totalAmount, status, paymentMethod,
	transferNumberEnc, instaHandleEnc, transferNumberMasked, instaHandleMasked,
	evidenceImageUrl, evidenceImageId, evidenceSubmittedAt,
	checkoutSessionId, paymentReference, adminNote, refundAmount, refundDate,
	createdAt, updatedAt`

type MySQLOrderRepository struct {
	db               *sql.DB
	logger           *zap.Logger
	maxRetryAttempts int
	now              func() time.Time
}

func NewMySQLOrderRepository(db *sql.DB, logger *zap.Logger, maxRetryAttempts int) *MySQLOrderRepository {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &MySQLOrderRepository{
		db:               db,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		now:              time.Now,
	}
}

func (r *MySQLOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	now := r.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	accountInfo, err := json.Marshal(order.AccountInfo)
	if err != nil {
		return nil, fmt.Errorf("encoding account info: %w", err)
	}

	var discount []byte
	if order.Discount != nil {
		discount, err = json.Marshal(order.Discount)
		if err != nil {
			return nil, fmt.Errorf("encoding discount: %w", err)
		}
	}

	query := `
		INSERT INTO Orders (
			id, buyerId, buyerEmail, productId, subProductId, accountInfo,
			baseAmount, discount, totalAmount, status, paymentMethod,
			checkoutSessionId, paymentReference, adminNote, createdAt, updatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		order.ID, order.BuyerID, order.BuyerEmail, order.ProductID, order.SubProductID, accountInfo,
		order.BaseAmount, discount, order.TotalAmount, string(order.Status), string(order.PaymentMethod),
		order.CheckoutSessionID, order.PaymentReference, order.AdminNote, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	return &order, nil
}

func (r *MySQLOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindByCheckoutSession(ctx context.Context, sessionID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM Orders WHERE checkoutSessionId = ? LIMIT 1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with checkout session %s not found", sessionID))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by checkout session: %w", err)
	}

	return order, nil
}

// UpdateConditional applies the patch only while the stored status equals
// expected. It returns ErrStatusMismatch when another writer got there first.
func (r *MySQLOrderRepository) UpdateConditional(
	ctx context.Context,
	id string,
	expected domain.OrderStatus,
	patch domain.OrderPatch,
) (*domain.Order, error) {
	var updated *domain.Order
	err := r.withDeadlockRetry(ctx, id, func() error {
		var err error
		updated, err = r.updateConditional(ctx, id, expected, patch)
		return err
	})
	return updated, err
}

func (r *MySQLOrderRepository) updateConditional(
	ctx context.Context,
	id string,
	expected domain.OrderStatus,
	patch domain.OrderPatch,
) (*domain.Order, error) {
	sets, args := patchAssignments(patch)
	sets = append(sets, "updatedAt = ?")
	args = append(args, r.now().UTC())
	args = append(args, id, string(expected))

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE Orders SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM Orders WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
		}
		if err != nil {
			return nil, fmt.Errorf("querying order status: %w", err)
		}
		return nil, fmt.Errorf("order %s is %s, expected %s: %w", id, current, expected, apperrors.ErrStatusMismatch)
	}

	order, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM Orders WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("reloading updated order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing order update: %w", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindMany(ctx context.Context, filter domain.OrderFilter, page domain.Page) (*domain.OrderPage, error) {
	page = page.Normalize()
	where, args := filterClause(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM Orders` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM Orders` + where + ` ORDER BY createdAt DESC, id ASC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	items := []domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		items = append(items, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	return &domain.OrderPage{
		Items:    items,
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
	}, nil
}

func patchAssignments(patch domain.OrderPatch) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.AdminNote != nil {
		sets = append(sets, "adminNote = ?")
		args = append(args, *patch.AdminNote)
	}
	if patch.RefundAmount != nil {
		sets = append(sets, "refundAmount = ?")
		args = append(args, *patch.RefundAmount)
	}
	if patch.RefundDate != nil {
		sets = append(sets, "refundDate = ?")
		args = append(args, patch.RefundDate.UTC())
	}
	if patch.Evidence != nil {
		sets = append(sets,
			"transferNumberEnc = ?", "instaHandleEnc = ?",
			"transferNumberMasked = ?", "instaHandleMasked = ?",
			"evidenceImageUrl = ?", "evidenceImageId = ?", "evidenceSubmittedAt = ?",
		)
		args = append(args,
			patch.Evidence.TransferNumberEnc, patch.Evidence.InstaHandleEnc,
			patch.Evidence.TransferNumberMasked, patch.Evidence.InstaHandleMasked,
			patch.Evidence.ImageURL, patch.Evidence.ImagePublicID, patch.Evidence.SubmittedAt.UTC(),
		)
	}
	if patch.CheckoutSessionID != nil {
		sets = append(sets, "checkoutSessionId = ?")
		args = append(args, *patch.CheckoutSessionID)
	}
	if patch.PaymentReference != nil {
		sets = append(sets, "paymentReference = ?")
		args = append(args, *patch.PaymentReference)
	}
	return sets, args
}

func filterClause(filter domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.PaymentMethod != nil {
		conds = append(conds, "paymentMethod = ?")
		args = append(args, string(*filter.PaymentMethod))
	}
	if filter.BuyerID != "" {
		conds = append(conds, "buyerId = ?")
		args = append(args, filter.BuyerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                    domain.Order
		subProductID         sql.NullString
		accountInfo          []byte
		discount             []byte
		status               string
		paymentMethod        string
		transferNumberEnc    sql.NullString
		instaHandleEnc       sql.NullString
		transferNumberMasked sql.NullString
		instaHandleMasked    sql.NullString
		evidenceImageURL     sql.NullString
		evidenceImageID      sql.NullString
		evidenceSubmittedAt  sql.NullTime
		refundAmount         decimal.NullDecimal
		refundDate           sql.NullTime
	)

	err := row.Scan(
		&o.ID, &o.BuyerID, &o.BuyerEmail, &o.ProductID, &subProductID, &accountInfo,
		&o.BaseAmount, &discount, &o.TotalAmount, &status, &paymentMethod,
		&transferNumberEnc, &instaHandleEnc, &transferNumberMasked, &instaHandleMasked, &evidenceImageURL, &evidenceImageID, &evidenceSubmittedAt,
		&o.CheckoutSessionID, &o.PaymentReference, &o.AdminNote, &refundAmount, &refundDate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(paymentMethod)

	if subProductID.Valid {
		o.SubProductID = &subProductID.String
	}
	if len(accountInfo) > 0 {
		if err := json.Unmarshal(accountInfo, &o.AccountInfo); err != nil {
			return nil, fmt.Errorf("decoding account info: %w", err)
		}
	}
	if len(discount) > 0 {
		var d domain.OrderDiscount
		if err := json.Unmarshal(discount, &d); err != nil {
			return nil, fmt.Errorf("decoding discount: %w", err)
		}
		o.Discount = &d
	}
	if evidenceSubmittedAt.Valid {
		o.Evidence = &domain.PaymentEvidence{
			TransferNumberEnc:    transferNumberEnc.String,
			InstaHandleEnc:       instaHandleEnc.String,
			TransferNumberMasked: transferNumberMasked.String,
			InstaHandleMasked:    instaHandleMasked.String,
			ImageURL:             evidenceImageURL.String,
			ImagePublicID:        evidenceImageID.String,
			SubmittedAt:          evidenceSubmittedAt.Time,
		}
	}
	if refundAmount.Valid {
		amount := refundAmount.Decimal
		o.RefundAmount = &amount
	}
	if refundDate.Valid {
		date := refundDate.Time
		o.RefundDate = &date
	}

	return &o, nil
}
