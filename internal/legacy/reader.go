// Package legacy issues read-only queries against the legacy store and
// yields rows as loosely typed records. No business logic lives here;
// normalization and validation belong to the staging decoders.
//
// Every nullable column is scanned through a sql.Null* wrapper and
// substituted with the documented default (empty string, zero) so a NULL
// anywhere in the dataset never aborts a run on its own. Decimal and date
// columns are read back as their text form and left for the decoders to
// parse, keeping the reader free of numeric policy.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
)

// Reader wraps the single long-lived connection to the legacy store.
type Reader struct {
	db *sql.DB
}

// NewReader returns a Reader over an open legacy connection. The caller
// retains ownership of db.
func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

// CategoryRow is one legacy category joined with its description row.
type CategoryRow struct {
	ID          int64
	ParentID    int64
	Name        string
	Description string
	Image       string
	SortOrder   int64
}

// Categories returns every legacy category, parents strictly before
// children. The recursive ordering is what lets the category insertion
// stage resolve each child's parent from the map built so far.
func (r *Reader) Categories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH RECURSIVE tree(categories_id, parent_id, depth) AS (
			SELECT categories_id, parent_id, 0 FROM categories WHERE parent_id = 0
			UNION ALL
			SELECT c.categories_id, c.parent_id, t.depth + 1
			FROM categories c JOIN tree t ON c.parent_id = t.categories_id
		)
		SELECT c.categories_id, c.parent_id, d.categories_name,
		       d.categories_description, c.categories_image, c.sort_order
		FROM tree t
		JOIN categories c ON c.categories_id = t.categories_id
		JOIN categories_description d ON d.categories_id = c.categories_id
		ORDER BY t.depth, c.sort_order, c.categories_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryRow
	for rows.Next() {
		var (
			row         CategoryRow
			description sql.NullString
			image       sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.ParentID, &row.Name, &description, &image, &row.SortOrder); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		row.Description = description.String
		row.Image = image.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}
	return out, nil
}

// ProductRow is one legacy product row. The legacy schema stores one row
// per variant, with the full SKU in Model; the staging decoders split it
// into base and suffix. The long description is not joined here; it is
// fetched per product through ProductDescription.
type ProductRow struct {
	ID         int64
	Model      string
	Name       string
	Price      string
	Quantity   string
	Weight     string
	Status     int64
	CategoryID int64
	Image      string
}

// Products returns every legacy product row in ID order.
func (r *Reader) Products(ctx context.Context) ([]ProductRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.products_id, p.products_model, d.products_name,
		       p.products_price, p.products_quantity, p.products_weight,
		       p.products_status, p.master_categories_id, p.products_image
		FROM products p
		JOIN products_description d ON d.products_id = p.products_id
		ORDER BY p.products_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []ProductRow
	for rows.Next() {
		var (
			row      ProductRow
			price    sql.NullString
			quantity sql.NullString
			weight   sql.NullString
			category sql.NullInt64
			image    sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Model, &row.Name, &price, &quantity,
			&weight, &row.Status, &category, &image); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		row.Price = price.String
		row.Quantity = quantity.String
		row.Weight = weight.String
		row.CategoryID = category.Int64
		row.Image = image.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	return out, nil
}

// ProductDescription fetches one product's long description. This is the
// deliberate bounded N+1: the description blobs are large and only a
// fraction of rows survive merging, so they are pulled one at a time for
// the rows that do.
func (r *Reader) ProductDescription(ctx context.Context, legacyID int64) (string, error) {
	var description sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT products_description FROM products_description
		WHERE products_id = ?
	`, legacyID).Scan(&description)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query product description %d: %w", legacyID, err)
	}
	return description.String, nil
}

// CustomerRow is one legacy customer, from either the account table or the
// guest-checkout orders.
type CustomerRow struct {
	ID          int64
	Email       string
	StoreCredit string
	Wholesale   int64
}

// AccountCustomers returns customers with accounts, with any accumulated
// store-credit balance.
func (r *Reader) AccountCustomers(ctx context.Context) ([]CustomerRow, error) {
	return r.customers(ctx, `
		SELECT c.customers_id, c.customers_email_address,
		       gv.amount, c.customers_wholesale
		FROM customers c
		LEFT JOIN coupon_gv_customer gv ON gv.customer_id = c.customers_id
		ORDER BY c.customers_id
	`)
}

// GuestCustomers returns the checkout-without-account customers recorded on
// orders that never got an account row. They merge with account customers
// by email downstream.
func (r *Reader) GuestCustomers(ctx context.Context) ([]CustomerRow, error) {
	return r.customers(ctx, `
		SELECT o.customers_id, o.customers_email_address, NULL, 0
		FROM orders o
		WHERE o.customers_id NOT IN (SELECT customers_id FROM customers)
		GROUP BY o.customers_id, o.customers_email_address
		ORDER BY o.customers_id
	`)
}

func (r *Reader) customers(ctx context.Context, query string) ([]CustomerRow, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []CustomerRow
	for rows.Next() {
		var (
			row    CustomerRow
			credit sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.Email, &credit, &row.Wholesale); err != nil {
			return nil, fmt.Errorf("scan customer row: %w", err)
		}
		row.StoreCredit = credit.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	return out, nil
}

// AddressRow is one legacy address-book entry with its country resolved to
// the stored code and the region left as raw text.
type AddressRow struct {
	CustomerID  int64
	Type        string
	FirstName   string
	LastName    string
	Company     string
	Street      string
	Suburb      string
	City        string
	State       string
	PostalCode  string
	CountryCode string
	IsDefault   int64
}

// Addresses returns every address-book entry in entry order. Entry order
// matters: when the legacy store inconsistently marks two defaults for one
// customer and type, the first encountered keeps the flag.
func (r *Reader) Addresses(ctx context.Context) ([]AddressRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.customers_id, a.address_type, a.entry_firstname,
		       a.entry_lastname, a.entry_company, a.entry_street_address,
		       a.entry_suburb, a.entry_city, a.entry_state,
		       a.entry_postcode, co.countries_iso_code_2, a.entry_default
		FROM address_book a
		JOIN countries co ON co.countries_id = a.entry_country_id
		ORDER BY a.address_book_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	var out []AddressRow
	for rows.Next() {
		var (
			row     AddressRow
			company sql.NullString
			suburb  sql.NullString
			state   sql.NullString
			post    sql.NullString
		)
		if err := rows.Scan(&row.CustomerID, &row.Type, &row.FirstName,
			&row.LastName, &company, &row.Street, &suburb, &row.City,
			&state, &post, &row.CountryCode, &row.IsDefault); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		row.Company = company.String
		row.Suburb = suburb.String
		row.State = state.String
		row.PostalCode = post.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read addresses: %w", err)
	}
	return out, nil
}

// CartItemRow is one legacy basket line.
type CartItemRow struct {
	CustomerID int64
	ProductID  int64
	Quantity   string
}

// CartItems returns every saved basket line in the order the legacy store
// recorded them.
func (r *Reader) CartItems(ctx context.Context) ([]CartItemRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customers_id, products_id, customers_basket_quantity
		FROM customers_basket
		ORDER BY customers_basket_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	var out []CartItemRow
	for rows.Next() {
		var (
			row      CartItemRow
			quantity sql.NullString
		)
		if err := rows.Scan(&row.CustomerID, &row.ProductID, &quantity); err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		row.Quantity = quantity.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read cart items: %w", err)
	}
	return out, nil
}

// CouponRow is one legacy coupon joined with its description.
type CouponRow struct {
	Code            string
	Name            string
	Kind            string
	Amount          string
	MinOrder        string
	Expires         string
	UsesPerCoupon   int64
	UsesPerCustomer int64
	Active          string
}

// Coupons returns every legacy discount coupon.
func (r *Reader) Coupons(ctx context.Context) ([]CouponRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.coupon_code, d.coupon_name, c.coupon_type, c.coupon_amount,
		       c.coupon_minimum_order, c.coupon_expire_date,
		       c.uses_per_coupon, c.uses_per_user, c.coupon_active
		FROM coupons c
		JOIN coupons_description d ON d.coupon_id = c.coupon_id
		ORDER BY c.coupon_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	var out []CouponRow
	for rows.Next() {
		var (
			row     CouponRow
			minimum sql.NullString
			expires sql.NullString
		)
		if err := rows.Scan(&row.Code, &row.Name, &row.Kind, &row.Amount,
			&minimum, &expires, &row.UsesPerCoupon, &row.UsesPerCustomer,
			&row.Active); err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		row.MinOrder = minimum.String
		row.Expires = expires.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read coupons: %w", err)
	}
	return out, nil
}

// ProductSaleRow is one legacy per-product special price.
type ProductSaleRow struct {
	ProductID int64
	Price     string
	Start     string
	End       string
}

// ProductSales returns the active special prices.
func (r *Reader) ProductSales(ctx context.Context) ([]ProductSaleRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT products_id, specials_new_products_price,
		       specials_date_available, expires_date
		FROM specials
		WHERE status = 1
		ORDER BY specials_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query product sales: %w", err)
	}
	defer rows.Close()

	var out []ProductSaleRow
	for rows.Next() {
		var (
			row   ProductSaleRow
			start sql.NullString
			end   sql.NullString
		)
		if err := rows.Scan(&row.ProductID, &row.Price, &start, &end); err != nil {
			return nil, fmt.Errorf("scan product sale row: %w", err)
		}
		row.Start = start.String
		row.End = end.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read product sales: %w", err)
	}
	return out, nil
}

// CategorySaleRow is one legacy category-wide sale. Categories is the raw
// comma-separated legacy category ID list.
type CategorySaleRow struct {
	Name           string
	DeductionValue string
	DeductionType  int64
	Categories     string
	Start          string
	End            string
}

// CategorySales returns the active category sales.
func (r *Reader) CategorySales(ctx context.Context) ([]CategorySaleRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sale_name, sale_deduction_value, sale_deduction_type,
		       sale_categories_selected, sale_date_start, sale_date_end
		FROM salemaker_sales
		WHERE sale_status = 1
		ORDER BY sale_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query category sales: %w", err)
	}
	defer rows.Close()

	var out []CategorySaleRow
	for rows.Next() {
		var (
			row   CategorySaleRow
			cats  sql.NullString
			start sql.NullString
			end   sql.NullString
		)
		if err := rows.Scan(&row.Name, &row.DeductionValue, &row.DeductionType,
			&cats, &start, &end); err != nil {
			return nil, fmt.Errorf("scan category sale row: %w", err)
		}
		row.Categories = cats.String
		row.Start = start.String
		row.End = end.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read category sales: %w", err)
	}
	return out, nil
}

// SeedAttributeRow carries the growing-attribute flags the legacy store
// kept directly on the product row.
type SeedAttributeRow struct {
	Model       string
	Organic     int64
	Heirloom    int64
	SmallGrower int64
	Regional    int64
}

// SeedAttributes returns the per-product growing attributes for rows that
// have any flag set.
func (r *Reader) SeedAttributes(ctx context.Context) ([]SeedAttributeRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT products_model, products_organic, products_heirloom,
		       products_ecogrown, products_regional
		FROM products
		WHERE products_organic = 1 OR products_heirloom = 1
		   OR products_ecogrown = 1 OR products_regional = 1
		ORDER BY products_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query seed attributes: %w", err)
	}
	defer rows.Close()

	var out []SeedAttributeRow
	for rows.Next() {
		var row SeedAttributeRow
		if err := rows.Scan(&row.Model, &row.Organic, &row.Heirloom,
			&row.SmallGrower, &row.Regional); err != nil {
			return nil, fmt.Errorf("scan seed attribute row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read seed attributes: %w", err)
	}
	return out, nil
}

// PageRow is one legacy static page.
type PageRow struct {
	Title string
	Body  string
}

// Pages returns the legacy static content pages.
func (r *Reader) Pages(ctx context.Context) ([]PageRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT pages_title, pages_html_text
		FROM ezpages
		WHERE status_toggle = 1
		ORDER BY pages_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var out []PageRow
	for rows.Next() {
		var (
			row  PageRow
			body sql.NullString
		)
		if err := rows.Scan(&row.Title, &body); err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		row.Body = body.String
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	return out, nil
}
