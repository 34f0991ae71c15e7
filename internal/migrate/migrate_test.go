package migrate_test

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replant/internal/config"
	"replant/internal/legacy"
	"replant/internal/legacy/legacytest"
	"replant/internal/migrate"
	"replant/internal/shopdb"
)

// openShop opens a fresh SQLite destination and a second plain connection
// onto the same file for assertions after the run commits.
func openShop(t *testing.T) (*shopdb.DB, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	dest, err := shopdb.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { dest.Close() })

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return dest, raw
}

// seedFixture loads a small but complete legacy store exercising every
// stage: a category tree, split-SKU variants, a suffix collision, account
// and guest customers sharing an email, duplicate and double-default
// addresses, accumulating basket rows, recovered misses, sales, a page
// and a coupon.
func seedFixture(t *testing.T, src *sql.DB) {
	t.Helper()

	legacytest.MustExec(t, src, `INSERT INTO categories (categories_id, parent_id, sort_order) VALUES
		(1, 0, 1), (2, 1, 1)`)
	legacytest.MustExec(t, src, `INSERT INTO categories_description (categories_id, categories_name, categories_description) VALUES
		(1, 'Vegetables', 'Everything green.'),
		(2, 'Tomatoes', NULL)`)

	// 101/102 share base SKU 92504; 105/106 share the full SKU 20001 and
	// trigger the inactive-suffix rename.
	legacytest.MustExec(t, src, `INSERT INTO products
		(products_id, products_model, products_price, products_quantity, products_weight,
		 products_status, master_categories_id, products_organic) VALUES
		(101, '92504',  '3.125', '10', '2.5', 1, 2, 1),
		(102, '92504A', '10.00', '5',  '3',   1, 2, 1),
		(103, '15001',  '2.00',  '0',  '1',   0, 1, 0),
		(105, '20001',  '4.00',  '3',  '1',   1, 1, 0),
		(106, '20001',  '4.50',  '0',  '1',   0, 1, 0)`)
	legacytest.MustExec(t, src, `INSERT INTO products_description (products_id, products_name, products_description) VALUES
		(101, 'Cherry Tomato', 'Sweet red cherry.' || char(10) || 'Good yield in most climates.'),
		(102, 'Cherry Tomato', NULL),
		(103, 'Spinach', 'Cold hardy.'),
		(105, 'Basil', 'Genovese type.'),
		(106, 'Basil Old', NULL)`)

	legacytest.MustExec(t, src, `INSERT INTO customers (customers_id, customers_email_address, customers_wholesale) VALUES
		(201, 'alice@example.com', 0),
		(202, 'bob@example.com', 1)`)
	legacytest.MustExec(t, src, `INSERT INTO coupon_gv_customer (customer_id, amount) VALUES (201, '5.00')`)
	// 301 is alice checking out as a guest before registering; 302 is a
	// pure guest.
	legacytest.MustExec(t, src, `INSERT INTO orders (orders_id, customers_id, customers_email_address) VALUES
		(1, 301, 'alice@example.com'),
		(2, 302, 'dora@example.com')`)

	legacytest.MustExec(t, src, `INSERT INTO address_book
		(address_book_id, customers_id, address_type, entry_firstname, entry_lastname,
		 entry_street_address, entry_city, entry_state, entry_postcode, entry_country_id, entry_default) VALUES
		(1, 201, 'shipping', 'Alice', 'Green', '12 Seed Rd', 'Richmond', 'Virginia', '23220', 1, 1),
		(2, 201, 'shipping', 'Alice', 'Green', '12 Seed Rd', 'Richmond', 'Virginia', '23220', 1, 0),
		(3, 201, 'shipping', 'Alice', 'Green', '34 Vine St', 'Richmond', 'Virginia', '23220', 1, 1),
		(4, 302, 'shipping', 'Dora', 'Hill', '9 Harbour Way', 'St Johns', 'Newfoundland', 'A1A 1A1', 2, 1)`)

	legacytest.MustExec(t, src, `INSERT INTO customers_basket
		(customers_basket_id, customers_id, products_id, customers_basket_quantity) VALUES
		(1, 301, 101, '2'),
		(2, 301, 101, '3'),
		(3, 201, 102, '1'),
		(4, 998, 101, '1'),
		(5, 202, 999, '1'),
		(6, 202, 777, '4'),
		(7, 202, 888, '1'),
		(8, 302, 103, '2')`)

	legacytest.MustExec(t, src, `INSERT INTO specials
		(specials_id, products_id, specials_new_products_price, specials_date_available, expires_date, status) VALUES
		(1, 102, '8.005', '2026-03-01', '2026-04-01', 1),
		(2, 998, '1.00', NULL, NULL, 1),
		(3, 101, '9.99', NULL, NULL, 0)`)
	legacytest.MustExec(t, src, `INSERT INTO salemaker_sales
		(sale_id, sale_name, sale_deduction_value, sale_deduction_type,
		 sale_categories_selected, sale_date_start, sale_date_end, sale_status) VALUES
		(1, 'Spring Sale', '25.0', 1, '1,2', '2026-03-01', '2026-03-31', 1)`)

	legacytest.MustExec(t, src, `INSERT INTO ezpages (pages_id, pages_title, pages_html_text, status_toggle) VALUES
		(1, 'About Us', '<p>Our farm.</p>', 1),
		(2, 'Retired Page', '<p>Old.</p>', 0)`)

	legacytest.MustExec(t, src, `INSERT INTO coupons
		(coupon_id, coupon_code, coupon_type, coupon_amount, coupon_minimum_order,
		 coupon_expire_date, uses_per_coupon, uses_per_user, coupon_active) VALUES
		(1, 'WELCOME10', 'P', '10.00', '25.00', '2026-12-31', 100, 1, 'Y')`)
	legacytest.MustExec(t, src, `INSERT INTO coupons_description (coupon_id, coupon_name) VALUES (1, 'Welcome Discount')`)
}

// fixtureExceptions matches seedFixture: basket row 7 references recreated
// product 888 (now 92504A), placeholder 99999 stands in for vanished
// product 555, and 777 is dropped without a warning.
func fixtureExceptions() config.Exceptions {
	return config.Exceptions{
		RecreatedProducts: []config.RecreatedProduct{
			{LegacyID: 888, BaseSKU: "92504", Suffix: "A"},
		},
		DeletedProducts: []config.DeletedProduct{
			{LegacyID: 555, SKU: "99999", Name: "Old Kale"},
		},
		IgnoredCartProducts: []int64{777},
	}
}

func runFixture(t *testing.T, log zerolog.Logger, opts migrate.Options, runToken string) (*migrate.Migrator, *sql.DB, error) {
	t.Helper()
	src := legacytest.Open(t)
	seedFixture(t, src)
	dest, raw := openShop(t)
	m := migrate.New(legacy.NewReader(src), dest, log, opts)
	err := m.Run(context.Background(), runToken)
	return m, raw, err
}

func count(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRunFullFixture(t *testing.T) {
	m, raw, err := runFixture(t, zerolog.Nop(), migrate.Options{Exceptions: fixtureExceptions()}, "run-full")
	require.NoError(t, err)

	assert.Equal(t, 2, count(t, raw, "categories"))
	assert.Equal(t, 4, count(t, raw, "products"), "three merged products plus the deleted-product placeholder")
	assert.Equal(t, 6, count(t, raw, "variants"))
	assert.Equal(t, 3, count(t, raw, "customers"))
	assert.Equal(t, 1, count(t, raw, "pages"))
	assert.Equal(t, 1, count(t, raw, "coupons"))
	assert.Equal(t, 1, count(t, raw, "category_sales"))
	assert.Equal(t, 2, count(t, raw, "category_sale_categories"))

	// Rows 101 and 102 merged on base SKU 92504: active, long description
	// from the first row, short description cut at its first line.
	var active bool
	var short, long string
	require.NoError(t, raw.QueryRow(`SELECT is_active, short_description, long_description FROM products WHERE base_sku = '92504'`).
		Scan(&active, &short, &long))
	assert.True(t, active)
	assert.Equal(t, "Sweet red cherry.", short)
	assert.Contains(t, long, "Good yield")

	// Thousandths rounding: 3.125 rounds the half cent up.
	var cents int64
	require.NoError(t, raw.QueryRow(`SELECT v.price_cents FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.base_sku = '92504' AND v.suffix = ''`).Scan(&cents))
	assert.Equal(t, int64(313), cents)

	// The later inactive 20001 row lost the collision and carries the
	// reserved suffix; the active one kept the blank suffix.
	rows, err := raw.Query(`SELECT v.suffix, v.is_active FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE p.base_sku = '20001' ORDER BY v.id`)
	require.NoError(t, err)
	defer rows.Close()
	type variant struct {
		suffix string
		active bool
	}
	var variants []variant
	for rows.Next() {
		var v variant
		require.NoError(t, rows.Scan(&v.suffix, &v.active))
		variants = append(variants, v)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []variant{{"", true}, {migrate.InactiveSuffix, false}}, variants)

	// Organic flags from both 92504 rows collapsed to one attribute row.
	assert.Equal(t, 1, count(t, raw, "seed_attributes"))
	var organic bool
	require.NoError(t, raw.QueryRow(`SELECT sa.is_organic FROM seed_attributes sa
		JOIN products p ON p.id = sa.product_id WHERE p.base_sku = '92504'`).Scan(&organic))
	assert.True(t, organic)

	// Account 201 and guest 301 merged on email, keeping the store credit.
	var credit int64
	require.NoError(t, raw.QueryRow(`SELECT store_credit_cents FROM customers WHERE email = 'alice@example.com'`).Scan(&credit))
	assert.Equal(t, int64(500), credit)

	// Entry 2 was a content duplicate, entry 3 a second default that got
	// demoted; Dora's province alias resolved to its ISO code.
	assert.Equal(t, 3, count(t, raw, "addresses"))
	assert.Equal(t, 1, m.Stats().Skipped("addresses"))
	var isDefault bool
	require.NoError(t, raw.QueryRow(`SELECT is_default FROM addresses WHERE address_one = '12 Seed Rd'`).Scan(&isDefault))
	assert.True(t, isDefault)
	require.NoError(t, raw.QueryRow(`SELECT is_default FROM addresses WHERE address_one = '34 Vine St'`).Scan(&isDefault))
	assert.False(t, isDefault)
	var region, country string
	require.NoError(t, raw.QueryRow(`SELECT region_code, country_code FROM addresses WHERE address_one = '9 Harbour Way'`).Scan(&region, &country))
	assert.Equal(t, "NL", region)
	assert.Equal(t, "CA", country)

	// Alice's two basket rows for 101 accumulated; her guest and account
	// IDs landed in the same cart. Dora's inactive-variant item was
	// purged, leaving her cart empty. Bob's recreated-product row
	// resolved through the alias.
	assert.Equal(t, 3, count(t, raw, "carts"))
	var qty int64
	require.NoError(t, raw.QueryRow(`SELECT ci.quantity FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN customers cu ON cu.id = c.customer_id
		JOIN variants v ON v.id = ci.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE cu.email = 'alice@example.com' AND p.base_sku = '92504' AND v.suffix = ''`).Scan(&qty))
	assert.Equal(t, int64(5), qty)
	var aliceItems, bobItems, doraItems int
	require.NoError(t, raw.QueryRow(`SELECT COUNT(*) FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id JOIN customers cu ON cu.id = c.customer_id
		WHERE cu.email = 'alice@example.com'`).Scan(&aliceItems))
	require.NoError(t, raw.QueryRow(`SELECT COUNT(*) FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id JOIN customers cu ON cu.id = c.customer_id
		WHERE cu.email = 'bob@example.com'`).Scan(&bobItems))
	require.NoError(t, raw.QueryRow(`SELECT COUNT(*) FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id JOIN customers cu ON cu.id = c.customer_id
		WHERE cu.email = 'dora@example.com'`).Scan(&doraItems))
	assert.Equal(t, 2, aliceItems)
	assert.Equal(t, 1, bobItems)
	assert.Equal(t, 0, doraItems)
	assert.Equal(t, 2, m.Stats().Skipped("cart items"), "unknown customer and unknown product")

	// 8.005 rounds up to 801; the special on unknown product 998 was
	// skipped, the inactive special never read.
	assert.Equal(t, 1, count(t, raw, "product_sales"))
	require.NoError(t, raw.QueryRow(`SELECT price_cents FROM product_sales`).Scan(&cents))
	assert.Equal(t, int64(801), cents)
	assert.Equal(t, 1, m.Stats().Skipped("product sales"))

	// Placeholder for the vanished product is inactive and carries the
	// configured SKU.
	require.NoError(t, raw.QueryRow(`SELECT is_active FROM products WHERE base_sku = '99999'`).Scan(&active))
	assert.False(t, active)

	// Fixed commerce defaults landed after the data stages.
	assert.Greater(t, count(t, raw, "tax_rates"), 0)
	assert.Greater(t, count(t, raw, "surcharges"), 0)
	assert.Greater(t, count(t, raw, "shipping_methods"), 0)

	// The run record survives with a finish stamp and the counter summary.
	var finished sql.NullString
	var summary string
	require.NoError(t, raw.QueryRow(`SELECT finished_at, summary FROM migration_runs WHERE run_token = 'run-full'`).
		Scan(&finished, &summary))
	assert.True(t, finished.Valid)
	assert.Contains(t, summary, "products=4")
	assert.Contains(t, summary, "cart items=")
}

func TestRunIsRepeatable(t *testing.T) {
	src := legacytest.Open(t)
	seedFixture(t, src)
	dest, raw := openShop(t)
	opts := migrate.Options{Exceptions: fixtureExceptions()}

	require.NoError(t, migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), opts).
		Run(context.Background(), "run-a"))
	require.NoError(t, migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), opts).
		Run(context.Background(), "run-b"))

	// The wipe puts the second run on the same empty slate, so the data
	// tables end identical; only the run log accumulates.
	assert.Equal(t, 4, count(t, raw, "products"))
	assert.Equal(t, 6, count(t, raw, "variants"))
	assert.Equal(t, 3, count(t, raw, "customers"))
	assert.Equal(t, 3, count(t, raw, "addresses"))
	assert.Equal(t, 3, count(t, raw, "carts"))
	assert.Equal(t, 2, count(t, raw, "migration_runs"))
}

func TestDryRunLeavesDestinationEmpty(t *testing.T) {
	opts := migrate.Options{Exceptions: fixtureExceptions(), DryRun: true}
	_, raw, err := runFixture(t, zerolog.Nop(), opts, "run-dry")
	require.NoError(t, err)

	assert.Equal(t, 0, count(t, raw, "products"))
	assert.Equal(t, 0, count(t, raw, "customers"))
	assert.Equal(t, 0, count(t, raw, "carts"))

	// The run record is written outside the rolled-back transaction.
	var summary string
	require.NoError(t, raw.QueryRow(`SELECT summary FROM migration_runs WHERE run_token = 'run-dry'`).Scan(&summary))
	assert.Contains(t, summary, "(dry run)")
}

func TestRunProgressLog(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := runFixture(t, zerolog.New(&buf), migrate.Options{Exceptions: fixtureExceptions()}, "run-log")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "progress_log", buf.Bytes())
}

func TestAddressForUnknownCustomerIsFatal(t *testing.T) {
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO address_book
		(address_book_id, customers_id, entry_firstname, entry_lastname,
		 entry_street_address, entry_city, entry_country_id, entry_default) VALUES
		(1, 999, 'No', 'One', '1 Missing St', 'Nowhere', 1, 0)`)
	dest, _ := openShop(t)

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-fatal-customer")
	require.Error(t, err)
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeMissingCustomer, fe.Code)
	assert.Equal(t, int64(999), fe.LegacyID)
	assert.True(t, migrate.IsFatal(err))
}

func TestCategorySaleForUnknownCategoryIsFatal(t *testing.T) {
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO salemaker_sales
		(sale_id, sale_name, sale_deduction_value, sale_deduction_type, sale_categories_selected, sale_status) VALUES
		(1, 'Ghost Sale', '10.0', 1, '42', 1)`)
	dest, _ := openShop(t)

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-fatal-category")
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeMissingCategory, fe.Code)
	assert.Equal(t, int64(42), fe.LegacyID)
}

func TestTwoActiveVariantsSharingSuffixIsFatal(t *testing.T) {
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO products
		(products_id, products_model, products_price, products_status) VALUES
		(1, '30001', '1.00', 1),
		(2, '30001', '2.00', 1)`)
	legacytest.MustExec(t, src, `INSERT INTO products_description (products_id, products_name) VALUES
		(1, 'Twin A'), (2, 'Twin B')`)
	dest, _ := openShop(t)

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-fatal-collision")
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeVariantCollision, fe.Code)
	assert.Equal(t, int64(2), fe.LegacyID)
}

// The reverse collision order: the inactive variant is already in and an
// active one arrives later. The newcomer keeps the suffix and the earlier
// one is renamed.
func TestActiveVariantDisplacesEarlierInactive(t *testing.T) {
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO products
		(products_id, products_model, products_price, products_status) VALUES
		(1, '30001', '1.00', 0),
		(2, '30001', '2.00', 1)`)
	legacytest.MustExec(t, src, `INSERT INTO products_description (products_id, products_name) VALUES
		(1, 'Leek'), (2, 'Leek New')`)
	dest, raw := openShop(t)

	require.NoError(t, migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-displace"))

	var suffix string
	var active bool
	var cents int64
	require.NoError(t, raw.QueryRow(`SELECT suffix, is_active, price_cents FROM variants WHERE is_active`).
		Scan(&suffix, &active, &cents))
	assert.Equal(t, "", suffix)
	assert.Equal(t, int64(200), cents)
	require.NoError(t, raw.QueryRow(`SELECT suffix FROM variants WHERE NOT is_active`).Scan(&suffix))
	assert.Equal(t, migrate.InactiveSuffix, suffix)
}

// A third row on the same full SKU would need a second sentinel slot; the
// run must stop with the offending legacy ID rather than surface a raw
// unique-constraint error.
func TestThreeInactiveVariantsSharingSuffixIsFatal(t *testing.T) {
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO products
		(products_id, products_model, products_price, products_status) VALUES
		(1, '30001', '1.00', 0),
		(2, '30001', '2.00', 0),
		(3, '30001', '3.00', 0)`)
	legacytest.MustExec(t, src, `INSERT INTO products_description (products_id, products_name) VALUES
		(1, 'Kale'), (2, 'Kale Mid'), (3, 'Kale Late')`)
	dest, _ := openShop(t)

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-fatal-triple")
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeVariantCollision, fe.Code)
	assert.Equal(t, int64(3), fe.LegacyID)
}

func TestInactiveAfterDemotionIsFatal(t *testing.T) {
	// Row 2 demotes row 1 onto the sentinel; row 3 then has nowhere to go.
	src := legacytest.Open(t)
	legacytest.MustExec(t, src, `INSERT INTO products
		(products_id, products_model, products_price, products_status) VALUES
		(1, '30001', '1.00', 0),
		(2, '30001', '2.00', 1),
		(3, '30001', '3.00', 0)`)
	legacytest.MustExec(t, src, `INSERT INTO products_description (products_id, products_name) VALUES
		(1, 'Chard'), (2, 'Chard New'), (3, 'Chard Late')`)
	dest, _ := openShop(t)

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), migrate.Options{}).
		Run(context.Background(), "run-fatal-demoted")
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeVariantCollision, fe.Code)
	assert.Equal(t, int64(3), fe.LegacyID)
}

func TestRecreatedAliasWithoutVariantIsFatal(t *testing.T) {
	src := legacytest.Open(t)
	dest, _ := openShop(t)
	opts := migrate.Options{Exceptions: config.Exceptions{
		RecreatedProducts: []config.RecreatedProduct{{LegacyID: 888, BaseSKU: "92504", Suffix: "A"}},
	}}

	err := migrate.New(legacy.NewReader(src), dest, zerolog.Nop(), opts).
		Run(context.Background(), "run-fatal-alias")
	var fe *migrate.FatalError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, migrate.CodeMissingProduct, fe.Code)
	assert.Equal(t, int64(888), fe.LegacyID)
}
