package testutil

import (
	"database/sql"
	"testing"

	"go.uber.org/zap"

	"fulfillment/internal/config"
	"fulfillment/internal/infrastructure/migration"
	"fulfillment/internal/infrastructure/mysql"
)

// SetupTestDB connects to the fulfillment_test database on localhost:3306 and
// applies the embedded migrations. The test is skipped when MySQL is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := mysql.NewConnection(config.DatabaseConfig{
		Host:         "localhost",
		Port:         3306,
		User:         "root",
		Name:         "fulfillment_test",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}, mysql.WithMultiStatements())
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	// The migrator is left open: closing it would close db as well.
	migrator, err := migration.New(db, zap.NewNop())
	if err != nil {
		db.Close()
		t.Fatalf("failed to prepare migrations: %v", err)
	}
	if err := migrator.Up(); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CleanupTestDB empties every pipeline table and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"shipments", "payment_confirmations", "shipping_addresses", "order_items", "orders"}
	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// InsertOrder seeds an unpaid order with one item and a shipping address.
func InsertOrder(t *testing.T, db *sql.DB, orderID string) {
	t.Helper()

	statements := []struct {
		query string
		args  []any
	}{
		{
			`INSERT INTO orders (id, order_number, customer_email, total_amount, currency, payment_state)
			VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{orderID, "SF-" + orderID, "jane@example.com", "42.50", "EUR", "UNPAID"},
		},
		{
			`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?)`,
			[]any{orderID, "SKU-1", "Linen shirt", 2, "21.25"},
		},
		{
			`INSERT INTO shipping_addresses (order_id, recipient_name, phone, line1, city, postal_code, country)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]any{orderID, "Jane Doe", "+33600000000", "1 rue de Rivoli", "Paris", "75001", "FR"},
		},
	}

	for _, st := range statements {
		if _, err := db.Exec(st.query, st.args...); err != nil {
			t.Fatalf("failed to seed order %s: %v", orderID, err)
		}
	}
}
