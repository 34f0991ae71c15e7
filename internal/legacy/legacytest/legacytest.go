// Package legacytest builds throwaway SQLite copies of the legacy schema
// for tests. The reader only speaks database/sql, so the same queries that
// run against the production MySQL source run against these fixtures.
package legacytest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE categories (
	categories_id INTEGER PRIMARY KEY,
	parent_id INTEGER NOT NULL DEFAULT 0,
	categories_image TEXT,
	sort_order INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE categories_description (
	categories_id INTEGER PRIMARY KEY,
	categories_name TEXT NOT NULL,
	categories_description TEXT
);
CREATE TABLE products (
	products_id INTEGER PRIMARY KEY,
	products_model TEXT NOT NULL,
	products_price TEXT,
	products_quantity TEXT,
	products_weight TEXT,
	products_status INTEGER NOT NULL DEFAULT 1,
	master_categories_id INTEGER,
	products_image TEXT,
	products_organic INTEGER NOT NULL DEFAULT 0,
	products_heirloom INTEGER NOT NULL DEFAULT 0,
	products_ecogrown INTEGER NOT NULL DEFAULT 0,
	products_regional INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE products_description (
	products_id INTEGER PRIMARY KEY,
	products_name TEXT NOT NULL,
	products_description TEXT
);
CREATE TABLE customers (
	customers_id INTEGER PRIMARY KEY,
	customers_email_address TEXT NOT NULL,
	customers_wholesale INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE coupon_gv_customer (
	customer_id INTEGER PRIMARY KEY,
	amount TEXT NOT NULL
);
CREATE TABLE orders (
	orders_id INTEGER PRIMARY KEY,
	customers_id INTEGER NOT NULL,
	customers_email_address TEXT NOT NULL
);
CREATE TABLE countries (
	countries_id INTEGER PRIMARY KEY,
	countries_iso_code_2 TEXT NOT NULL
);
CREATE TABLE address_book (
	address_book_id INTEGER PRIMARY KEY,
	customers_id INTEGER NOT NULL,
	address_type TEXT NOT NULL DEFAULT 'shipping',
	entry_firstname TEXT NOT NULL DEFAULT '',
	entry_lastname TEXT NOT NULL DEFAULT '',
	entry_company TEXT,
	entry_street_address TEXT NOT NULL DEFAULT '',
	entry_suburb TEXT,
	entry_city TEXT NOT NULL DEFAULT '',
	entry_state TEXT,
	entry_postcode TEXT,
	entry_country_id INTEGER NOT NULL,
	entry_default INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE customers_basket (
	customers_basket_id INTEGER PRIMARY KEY,
	customers_id INTEGER NOT NULL,
	products_id INTEGER NOT NULL,
	customers_basket_quantity TEXT
);
CREATE TABLE coupons (
	coupon_id INTEGER PRIMARY KEY,
	coupon_code TEXT NOT NULL,
	coupon_type TEXT NOT NULL,
	coupon_amount TEXT NOT NULL,
	coupon_minimum_order TEXT,
	coupon_expire_date TEXT,
	uses_per_coupon INTEGER NOT NULL DEFAULT 0,
	uses_per_user INTEGER NOT NULL DEFAULT 0,
	coupon_active TEXT NOT NULL DEFAULT 'Y'
);
CREATE TABLE coupons_description (
	coupon_id INTEGER PRIMARY KEY,
	coupon_name TEXT NOT NULL
);
CREATE TABLE specials (
	specials_id INTEGER PRIMARY KEY,
	products_id INTEGER NOT NULL,
	specials_new_products_price TEXT NOT NULL,
	specials_date_available TEXT,
	expires_date TEXT,
	status INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE salemaker_sales (
	sale_id INTEGER PRIMARY KEY,
	sale_name TEXT NOT NULL,
	sale_deduction_value TEXT NOT NULL,
	sale_deduction_type INTEGER NOT NULL,
	sale_categories_selected TEXT,
	sale_date_start TEXT,
	sale_date_end TEXT,
	sale_status INTEGER NOT NULL DEFAULT 1
);
CREATE TABLE ezpages (
	pages_id INTEGER PRIMARY KEY,
	pages_title TEXT NOT NULL,
	pages_html_text TEXT,
	status_toggle INTEGER NOT NULL DEFAULT 1
);
`

// Open creates an empty legacy-schema SQLite database in t.TempDir.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open legacy fixture: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply legacy schema: %v", err)
	}
	// The US and Canada rows every address fixture needs.
	MustExec(t, db, `INSERT INTO countries (countries_id, countries_iso_code_2) VALUES (1, 'US'), (2, 'CA'), (3, 'UK'), (4, 'DE')`)
	return db
}

// MustExec runs one statement against the fixture and fails the test on
// error.
func MustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("fixture exec %q: %v", query, err)
	}
}
