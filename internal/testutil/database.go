package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration database. It expects a MySQL instance on
// localhost:3306 with a 'storefront_test' schema and skips otherwise.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	cfg := mysql.NewConfig()
	cfg.User = "root"
	cfg.Net = "tcp"
	cfg.Addr = "localhost:3306"
	cfg.DBName = "storefront_test"
	cfg.ParseTime = true
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the tables and closes the connection.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"Orders", "Coupons", "SubProducts", "Products"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema used by the repositories.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createProductsTable := `
	CREATE TABLE IF NOT EXISTS Products (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(20) NOT NULL,
		price DECIMAL(10,2) NULL,
		isOffer TINYINT(1) NOT NULL DEFAULT 0,
		finalPrice DECIMAL(10,2) NULL,
		accountInfoFields JSON NOT NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		isDeleted TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

	createSubProductsTable := `
	CREATE TABLE IF NOT EXISTS SubProducts (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		productId VARCHAR(64) NOT NULL,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NULL,
		isOffer TINYINT(1) NOT NULL DEFAULT 0,
		finalPrice DECIMAL(10,2) NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		isDeleted TINYINT(1) NOT NULL DEFAULT 0,
		createdAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_product (productId)
	)`

	createCouponsTable := `
	CREATE TABLE IF NOT EXISTS Coupons (
		code VARCHAR(64) NOT NULL PRIMARY KEY,
		type VARCHAR(20) NOT NULL,
		value DECIMAL(10,2) NOT NULL,
		minOrderAmount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		maxDiscount DECIMAL(10,2) NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		expiresAt DATETIME NULL,
		usageLimit INT NULL,
		usedCount INT NOT NULL DEFAULT 0
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id CHAR(36) NOT NULL PRIMARY KEY,
		buyerId VARCHAR(64) NOT NULL,
		buyerEmail VARCHAR(255) NOT NULL,
		productId VARCHAR(64) NOT NULL,
		subProductId VARCHAR(64) NULL,
		accountInfo JSON NOT NULL,
		baseAmount DECIMAL(10,2) NOT NULL,
		discount JSON NULL,
		totalAmount DECIMAL(10,2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		paymentMethod VARCHAR(20) NOT NULL,
		transferNumberEnc TEXT NULL,
		instaHandleEnc TEXT NULL,
		transferNumberMasked VARCHAR(64) NULL,
		instaHandleMasked VARCHAR(64) NULL,
		evidenceImageUrl VARCHAR(512) NULL,
		evidenceImageId VARCHAR(255) NULL,
		evidenceSubmittedAt DATETIME(6) NULL,
		checkoutSessionId VARCHAR(255) NOT NULL DEFAULT '',
		paymentReference VARCHAR(255) NOT NULL DEFAULT '',
		adminNote TEXT NOT NULL,
		refundAmount DECIMAL(10,2) NULL,
		refundDate DATETIME(6) NULL,
		createdAt DATETIME(6) NOT NULL,
		updatedAt DATETIME(6) NOT NULL,
		INDEX idx_status (status),
		INDEX idx_buyer (buyerId),
		INDEX idx_checkout_session (checkoutSessionId)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Products", createProductsTable},
		{"SubProducts", createSubProductsTable},
		{"Coupons", createCouponsTable},
		{"Orders", createOrdersTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
