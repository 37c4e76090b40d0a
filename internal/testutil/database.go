package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the MySQL test database named by CANTEEN_TEST_DSN
// (default root@localhost/canteen_test) and skips the test when it is not
// reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("CANTEEN_TEST_DSN")
	if dsn == "" {
		dsn = "root:@tcp(localhost:3306)/canteen_test?parseTime=true&clientFoundRows=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.Ping()
	if err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the tables touched by the tests and closes db.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"Orders", "MenuItems", "Categories"}
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
	createCategoriesTable := `
	CREATE TABLE IF NOT EXISTS Categories (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		sortOrder INT NOT NULL DEFAULT 0
	)`

	createMenuItemsTable := `
	CREATE TABLE IF NOT EXISTS MenuItems (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		categoryId INT NOT NULL,
		name VARCHAR(150) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		isActive TINYINT(1) NOT NULL DEFAULT 1,
		INDEX idx_category (categoryId)
	)`

	createOrdersTable := `
	CREATE TABLE IF NOT EXISTS Orders (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		orderNumber VARCHAR(40) NOT NULL,
		barcode VARCHAR(40) NOT NULL,
		customerId VARCHAR(64),
		customerName VARCHAR(150),
		items JSON NOT NULL,
		subtotal DECIMAL(10,2) NOT NULL,
		tax DECIMAL(10,2) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		status VARCHAR(20) NOT NULL,
		estimatedTime INT NOT NULL DEFAULT 0,
		paymentRef VARCHAR(120),
		createdAt DATETIME(3) NOT NULL,
		updatedAt DATETIME(3) NOT NULL,
		deliveredAt DATETIME(3),
		UNIQUE KEY uq_order_number (orderNumber),
		UNIQUE KEY uq_barcode (barcode),
		INDEX idx_customer (customerId),
		INDEX idx_status (status)
	)`

	tables := []struct {
		name  string
		query string
	}{
		{"Categories", createCategoriesTable},
		{"MenuItems", createMenuItemsTable},
		{"Orders", createOrdersTable},
	}

	for _, tbl := range tables {
		_, err := db.Exec(tbl.query)
		if err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
