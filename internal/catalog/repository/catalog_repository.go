package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

// GetProduct returns nil, nil when the product does not exist.
func (r *MySQLRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, type, price, isOffer, finalPrice, accountInfoFields,
		       isActive, isDeleted, createdAt, updatedAt
		FROM Products
		WHERE id = ?
	`

	var (
		p          domain.Product
		productTyp string
		price      decimal.NullDecimal
		finalPrice decimal.NullDecimal
		fieldsJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &productTyp, &price, &p.IsOffer, &finalPrice, &fieldsJSON,
		&p.IsActive, &p.IsDeleted, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}

	p.Type = domain.ProductType(productTyp)
	p.Price = nullDecimalPtr(price)
	p.FinalPrice = nullDecimalPtr(finalPrice)

	fields, err := decodeAccountInfoFields(fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding account info fields of product %s: %w", id, err)
	}
	p.AccountInfoFields = fields

	return &p, nil
}

// GetSubProduct returns nil, nil when the package does not exist.
func (r *MySQLRepository) GetSubProduct(ctx context.Context, id string) (*domain.SubProduct, error) {
	query := `
		SELECT id, productId, name, price, isOffer, finalPrice,
		       isActive, isDeleted, createdAt, updatedAt
		FROM SubProducts
		WHERE id = ?
	`

	var (
		s          domain.SubProduct
		price      decimal.NullDecimal
		finalPrice decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ProductID, &s.Name, &price, &s.IsOffer, &finalPrice,
		&s.IsActive, &s.IsDeleted, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying sub-product by id: %w", err)
	}

	s.Price = nullDecimalPtr(price)
	s.FinalPrice = nullDecimalPtr(finalPrice)

	return &s, nil
}

// decodeAccountInfoFields reads the ordered field schema stored as
// [{"fieldName": "...", "isRequired": true}, ...].
func decodeAccountInfoFields(raw []byte) ([]domain.AccountInfoField, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var fields []domain.AccountInfoField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func nullDecimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
