package shopdb

import (
	"context"
	"fmt"
)

// wipeOrder lists the destination tables children-before-parents so the
// deletes never trip a foreign key. migration_runs is deliberately absent:
// run history survives across runs.
var wipeOrder = []string{
	"cart_items",
	"carts",
	"order_line_items",
	"orders",
	"product_sales",
	"category_sale_categories",
	"category_sales",
	"seed_attributes",
	"addresses",
	"variants",
	"products",
	"categories",
	"pages",
	"coupons",
	"customers",
	"tax_rates",
	"surcharges",
	"shipping_methods",
}

// Wipe destructively clears every destination table, giving the run its
// replace-everything semantics. Re-running after any failure starts from
// the same clean slate.
func (d *DB) Wipe(ctx context.Context) error {
	for _, table := range wipeOrder {
		if _, err := d.exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	return nil
}
