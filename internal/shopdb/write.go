package shopdb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"replant/internal/staging"
)

// InsertCategory inserts one category and returns its new ID. parentID is
// the already-resolved destination parent, zero for top-level categories.
func (d *DB) InsertCategory(ctx context.Context, cat staging.Category, parentID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO categories (name, slug, parent_id, description, image_url, sort_order)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, cat.Name, cat.Slug, nullableID(parentID), cat.Description, cat.ImagePath, cat.SortOrder)
	if err != nil {
		return 0, fmt.Errorf("insert category %q: %w", cat.Name, err)
	}
	return id, nil
}

// InsertProduct inserts one merged product. categoryID is the resolved
// destination category, zero for an uncategorized product.
func (d *DB) InsertProduct(ctx context.Context, p staging.Product, categoryID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO products
		(name, slug, base_sku, short_description, long_description, image_url, is_active, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, p.Name, p.Slug, p.BaseSKU, p.ShortDescription, p.LongDescription,
		p.ImagePath, p.IsActive, nullableID(categoryID))
	if err != nil {
		return 0, fmt.Errorf("insert product %s: %w", p.BaseSKU, err)
	}
	return id, nil
}

// InsertVariant inserts one variant under its resolved product.
func (d *DB) InsertVariant(ctx context.Context, v staging.Variant, productID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO variants
		(product_id, suffix, price_cents, quantity, weight_milligrams, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, productID, v.Suffix, v.PriceCents, v.Quantity, v.WeightMilligrams, v.IsActive)
	if err != nil {
		return 0, fmt.Errorf("insert variant %s%s: %w", v.BaseSKU, v.Suffix, err)
	}
	return id, nil
}

// VariantRecord is the slice of a destination variant row the collision
// policy needs.
type VariantRecord struct {
	ID       int64
	IsActive bool
}

// VariantBySuffix looks up a variant by its (product, suffix) natural key.
func (d *DB) VariantBySuffix(ctx context.Context, productID int64, suffix string) (VariantRecord, bool, error) {
	var rec VariantRecord
	err := d.q().QueryRowContext(ctx, d.rebind(`
		SELECT id, is_active FROM variants
		WHERE product_id = ? AND suffix = ?
	`), productID, suffix).Scan(&rec.ID, &rec.IsActive)
	if err == sql.ErrNoRows {
		return VariantRecord{}, false, nil
	}
	if err != nil {
		return VariantRecord{}, false, fmt.Errorf("lookup variant %d/%q: %w", productID, suffix, err)
	}
	return rec, true, nil
}

// UpdateVariantSuffix renames a variant's suffix. Used by the collision
// policy to move an inactive variant onto the reserved sentinel.
func (d *DB) UpdateVariantSuffix(ctx context.Context, variantID int64, suffix string) error {
	if _, err := d.exec(ctx, `UPDATE variants SET suffix = ? WHERE id = ?`, suffix, variantID); err != nil {
		return fmt.Errorf("rename variant %d: %w", variantID, err)
	}
	return nil
}

// InsertSeedAttribute attaches growing attributes to a resolved product.
func (d *DB) InsertSeedAttribute(ctx context.Context, attr staging.SeedAttribute, productID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO seed_attributes
		(product_id, is_organic, is_heirloom, is_small_grower, is_regional)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, productID, attr.IsOrganic, attr.IsHeirloom, attr.IsSmallGrower, attr.IsRegional)
	if err != nil {
		return 0, fmt.Errorf("insert seed attribute %s: %w", attr.BaseSKU, err)
	}
	return id, nil
}

// InsertCustomer inserts one merged customer.
func (d *DB) InsertCustomer(ctx context.Context, c staging.Customer) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO customers (email, store_credit_cents, is_wholesale)
		VALUES (?, ?, ?)
		RETURNING id
	`, c.Email, c.StoreCreditCents, c.IsWholesale)
	if err != nil {
		return 0, fmt.Errorf("insert customer %s: %w", c.Email, err)
	}
	return id, nil
}

// AddressExists reports whether an identical address is already on file
// for the customer and address type. The legacy book is full of re-entered
// duplicates; content-identical rows collapse to one.
func (d *DB) AddressExists(ctx context.Context, customerID int64, a staging.Address) (bool, error) {
	var n int
	err := d.q().QueryRowContext(ctx, d.rebind(`
		SELECT COUNT(*) FROM addresses
		WHERE customer_id = ? AND address_type = ?
		  AND first_name = ? AND last_name = ? AND company = ?
		  AND address_one = ? AND address_two = ? AND city = ?
		  AND region_code = ? AND region_custom = ?
		  AND postal_code = ? AND country_code = ?
	`), customerID, string(a.Type), a.FirstName, a.LastName, a.Company,
		a.AddressLineOne, a.AddressLineTwo, a.City,
		a.Region.Code, a.Region.Custom, a.PostalCode, a.CountryCode).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check address duplicate: %w", err)
	}
	return n > 0, nil
}

// HasDefaultAddress reports whether the customer already has a default
// address of the given type.
func (d *DB) HasDefaultAddress(ctx context.Context, customerID int64, addrType staging.AddressType) (bool, error) {
	var n int
	err := d.q().QueryRowContext(ctx, d.rebind(`
		SELECT COUNT(*) FROM addresses
		WHERE customer_id = ? AND address_type = ? AND is_default
	`), customerID, string(addrType)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check default address: %w", err)
	}
	return n > 0, nil
}

// InsertAddress inserts one address for a resolved customer. isDefault is
// the flag after the first-default-wins demotion, not the raw source flag.
func (d *DB) InsertAddress(ctx context.Context, a staging.Address, customerID int64, isDefault bool) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO addresses
		(customer_id, address_type, first_name, last_name, company,
		 address_one, address_two, city, region_code, region_custom,
		 postal_code, country_code, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, customerID, string(a.Type), a.FirstName, a.LastName, a.Company,
		a.AddressLineOne, a.AddressLineTwo, a.City,
		a.Region.Code, a.Region.Custom, a.PostalCode, a.CountryCode, isDefault)
	if err != nil {
		return 0, fmt.Errorf("insert address for customer %d: %w", customerID, err)
	}
	return id, nil
}

// InsertCart creates the one cart a customer gets.
func (d *DB) InsertCart(ctx context.Context, customerID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO carts (customer_id) VALUES (?) RETURNING id
	`, customerID)
	if err != nil {
		return 0, fmt.Errorf("insert cart for customer %d: %w", customerID, err)
	}
	return id, nil
}

// UpsertCartItem adds quantity to the (cart, variant) line, creating it on
// first sight. Duplicate variants in one legacy basket accumulate.
func (d *DB) UpsertCartItem(ctx context.Context, cartID, variantID, quantity int64) error {
	_, err := d.exec(ctx, `
		INSERT INTO cart_items (cart_id, variant_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT (cart_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
	`, cartID, variantID, quantity)
	if err != nil {
		return fmt.Errorf("upsert cart item %d/%d: %w", cartID, variantID, err)
	}
	return nil
}

// PurgeInactiveCartItems deletes cart items whose variant or product ended
// the load inactive, and returns how many rows went.
func (d *DB) PurgeInactiveCartItems(ctx context.Context) (int64, error) {
	res, err := d.exec(ctx, `
		DELETE FROM cart_items WHERE variant_id IN (
			SELECT v.id FROM variants v
			JOIN products p ON p.id = v.product_id
			WHERE NOT v.is_active OR NOT p.is_active
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("purge inactive cart items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge inactive cart items: %w", err)
	}
	return n, nil
}

// InsertCoupon inserts one coupon.
func (d *DB) InsertCoupon(ctx context.Context, c staging.Coupon) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO coupons
		(code, name, discount_kind, amount_cents, whole_percent,
		 min_order_cents, expires_at, total_uses, uses_per_customer, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, c.Code, c.Name, string(c.Discount.Kind), c.Discount.AmountCents,
		c.Discount.WholePercent, c.MinOrderCents, nullableTime(c.Expires),
		c.TotalUses, c.UsesPerCustomer, c.IsActive)
	if err != nil {
		return 0, fmt.Errorf("insert coupon %s: %w", c.Code, err)
	}
	return id, nil
}

// InsertProductSale attaches a sale price to a resolved variant.
func (d *DB) InsertProductSale(ctx context.Context, s staging.ProductSale, variantID int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO product_sales (variant_id, price_cents, starts_at, ends_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, variantID, s.PriceCents, nullableTime(s.Start), nullableTime(s.End))
	if err != nil {
		return 0, fmt.Errorf("insert product sale for variant %d: %w", variantID, err)
	}
	return id, nil
}

// InsertCategorySale inserts a category sale and its resolved category
// links.
func (d *DB) InsertCategorySale(ctx context.Context, s staging.CategorySale, categoryIDs []int64) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO category_sales (name, discount_kind, amount_cents, whole_percent, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, s.Name, string(s.Discount.Kind), s.Discount.AmountCents,
		s.Discount.WholePercent, nullableTime(s.Start), nullableTime(s.End))
	if err != nil {
		return 0, fmt.Errorf("insert category sale %q: %w", s.Name, err)
	}
	for _, categoryID := range categoryIDs {
		if _, err := d.exec(ctx, `
			INSERT INTO category_sale_categories (category_sale_id, category_id)
			VALUES (?, ?)
		`, id, categoryID); err != nil {
			return 0, fmt.Errorf("link category sale %q to category %d: %w", s.Name, categoryID, err)
		}
	}
	return id, nil
}

// InsertPage inserts one static page.
func (d *DB) InsertPage(ctx context.Context, p staging.Page) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO pages (name, slug, content) VALUES (?, ?, ?) RETURNING id
	`, p.Name, p.Slug, p.Content)
	if err != nil {
		return 0, fmt.Errorf("insert page %q: %w", p.Name, err)
	}
	return id, nil
}

// StartRun records the run token before the wipe, outside the run
// transaction's tables, so an aborted run still leaves a trace.
func (d *DB) StartRun(ctx context.Context, runToken string) (int64, error) {
	id, err := d.insertReturningID(ctx, `
		INSERT INTO migration_runs (run_token) VALUES (?) RETURNING id
	`, runToken)
	if err != nil {
		return 0, fmt.Errorf("record run %s: %w", runToken, err)
	}
	return id, nil
}

// FinishRun stamps the run's completion time and summary line.
func (d *DB) FinishRun(ctx context.Context, runID int64, summary string) error {
	if _, err := d.exec(ctx, `
		UPDATE migration_runs SET finished_at = CURRENT_TIMESTAMP, summary = ? WHERE id = ?
	`, summary, runID); err != nil {
		return fmt.Errorf("finish run %d: %w", runID, err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
