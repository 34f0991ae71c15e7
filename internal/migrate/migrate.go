// Package migrate sequences the full legacy-to-destination migration: wipe,
// extraction, merging, insertion in dependency order, and the post-load
// integrity passes. The ID maps that stitch the entity graph back together
// live here and nowhere else; stages receive them explicitly and never
// share them.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"replant/internal/config"
	"replant/internal/idmap"
	"replant/internal/legacy"
	"replant/internal/shopdb"
	"replant/internal/staging"
)

// InactiveSuffix is the reserved sentinel an inactive variant's suffix is
// renamed to when it collides with another variant on the same product.
const InactiveSuffix = "X-INACTIVE"

// Migrator runs one full migration. Strictly sequential: each stage fully
// drains its input and settles its ID map before the next begins.
type Migrator struct {
	reader     *legacy.Reader
	db         *shopdb.DB
	exceptions config.Exceptions
	log        zerolog.Logger
	dryRun     bool

	// old key -> new destination ID, one map per entity type.
	categories *idmap.Map[int64]  // legacy category ID -> category ID
	products   *idmap.Map[string] // base SKU -> product ID
	variants   *idmap.Map[int64]  // legacy product ID -> variant ID
	customers  *idmap.Map[int64]  // legacy customer ID -> customer ID

	// staged carries the variants decoded alongside products from the
	// product stage to the variant stage; no product insert may be
	// pending when variants begin.
	staged []staging.Variant

	stats *Stats
}

// Options configures a Migrator beyond its collaborators.
type Options struct {
	// Exceptions steers the variant aliasing and cart stages.
	Exceptions config.Exceptions

	// DryRun rolls the destination transaction back instead of committing.
	DryRun bool
}

// New returns a Migrator over an open legacy reader and destination store.
func New(reader *legacy.Reader, db *shopdb.DB, log zerolog.Logger, opts Options) *Migrator {
	return &Migrator{
		reader:     reader,
		db:         db,
		exceptions: opts.Exceptions,
		log:        log,
		dryRun:     opts.DryRun,
		categories: idmap.New[int64]("category"),
		products:   idmap.New[string]("product"),
		variants:   idmap.New[int64]("variant"),
		customers:  idmap.New[int64]("customer"),
		stats:      newStats(),
	}
}

// Stats returns the run's counters. Meaningful after Run returns.
func (m *Migrator) Stats() *Stats { return m.stats }

// Run executes the whole migration. On any fatal error the destination
// transaction is rolled back and the error returned; a clean re-run is
// always safe because the wipe starts every run from the same slate.
func (m *Migrator) Run(ctx context.Context, runToken string) (err error) {
	if err := m.db.EnsureSchema(ctx); err != nil {
		return err
	}
	runID, err := m.db.StartRun(ctx, runToken)
	if err != nil {
		return err
	}

	if err := m.db.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if rbErr := m.db.Rollback(); err == nil && rbErr != nil {
			err = rbErr
		}
	}()

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"Wiping Destination", m.wipe},
		{"Making Categories", m.makeCategories},
		{"Making Category Sales", m.makeCategorySales},
		{"Making Products", m.makeProducts},
		{"Inserting Variants", m.makeVariants},
		{"Inserting Seed Attributes", m.makeSeedAttributes},
		{"Inserting Product Sales", m.makeProductSales},
		{"Inserting Pages", m.makePages},
		{"Inserting Customers", m.makeCustomers},
		{"Inserting Addresses", m.makeAddresses},
		{"Seeding Defaults", m.seedDefaults},
		{"Inserting Carts", m.makeCarts},
		{"Purging Inactive Cart Items", m.purgeCartItems},
		{"Inserting Coupons", m.makeCoupons},
	}
	for _, stage := range stages {
		m.log.Info().Msg(stage.name)
		if err := stage.run(ctx); err != nil {
			return err
		}
	}

	if m.dryRun {
		m.log.Info().Msg("Dry Run Complete, Rolling Back")
		if err := m.db.Rollback(); err != nil {
			return err
		}
		return m.db.FinishRun(ctx, runID, m.stats.Summary()+" (dry run)")
	}
	if err := m.db.FinishRun(ctx, runID, m.stats.Summary()); err != nil {
		return err
	}
	return m.db.Commit()
}

func (m *Migrator) wipe(ctx context.Context) error {
	return m.db.Wipe(ctx)
}

// makeCategories inserts categories parent-before-child. The source query
// guarantees the ordering, so each child's parent is already in the map.
func (m *Migrator) makeCategories(ctx context.Context) error {
	rows, err := m.reader.Categories(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		cat, err := staging.DecodeCategory(row)
		if err != nil {
			return err
		}
		var parentID int64
		if cat.LegacyParentID != 0 {
			id, ok := m.categories.Lookup(cat.LegacyParentID)
			if !ok {
				return fatalf(CodeMissingCategory, cat.LegacyID, fmt.Sprintf("%+v", cat),
					"category %q references parent %d not yet inserted", cat.Name, cat.LegacyParentID)
			}
			parentID = id
		}
		id, err := m.db.InsertCategory(ctx, cat, parentID)
		if err != nil {
			return err
		}
		m.categories.Register(cat.LegacyID, id)
		m.stats.insert("categories")
	}
	return nil
}

// makeCategorySales inserts category-wide sales. A sale referencing an
// unknown category is corrupt source data and aborts the run.
func (m *Migrator) makeCategorySales(ctx context.Context) error {
	rows, err := m.reader.CategorySales(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		sale, err := staging.DecodeCategorySale(row)
		if err != nil {
			return err
		}
		ids := make([]int64, 0, len(sale.LegacyCategoryIDs))
		for _, legacyID := range sale.LegacyCategoryIDs {
			id, ok := m.categories.Lookup(legacyID)
			if !ok {
				return fatalf(CodeMissingCategory, legacyID, fmt.Sprintf("%+v", sale),
					"category sale %q references unknown category", sale.Name)
			}
			ids = append(ids, id)
		}
		if _, err := m.db.InsertCategorySale(ctx, sale, ids); err != nil {
			return err
		}
		m.stats.insert("category sales")
	}
	return nil
}

// makeProducts decodes every legacy product row, merges duplicates by base
// SKU, fetches the surviving products' descriptions, and inserts them. A
// missing category is logged and the product left uncategorized.
func (m *Migrator) makeProducts(ctx context.Context) error {
	rows, err := m.reader.Products(ctx)
	if err != nil {
		return err
	}

	products := make([]staging.Product, 0, len(rows))
	firstLegacyID := make(map[string]int64)
	for _, row := range rows {
		product, variant, err := staging.DecodeProduct(row)
		if err != nil {
			return err
		}
		products = append(products, product)
		m.staged = append(m.staged, variant)
		if _, ok := firstLegacyID[product.BaseSKU]; !ok {
			firstLegacyID[product.BaseSKU] = row.ID
		}
	}
	products = staging.MergeProducts(products)

	for _, product := range products {
		description, err := m.reader.ProductDescription(ctx, firstLegacyID[product.BaseSKU])
		if err != nil {
			return err
		}
		product.SetDescription(description)

		var categoryID int64
		if product.LegacyCategoryID != 0 {
			id, ok := m.categories.Lookup(product.LegacyCategoryID)
			if !ok {
				m.log.Warn().
					Str("base_sku", product.BaseSKU).
					Int64("legacy_category_id", product.LegacyCategoryID).
					Msg("product references unknown category, leaving uncategorized")
			} else {
				categoryID = id
			}
		}
		id, err := m.db.InsertProduct(ctx, product, categoryID)
		if err != nil {
			return err
		}
		m.products.Register(product.BaseSKU, id)
		m.stats.insert("products")
	}
	return nil
}

// makeVariants inserts the variants staged by makeProducts, applying the
// suffix collision policy, then processes the recreated- and
// deleted-product exception tables.
func (m *Migrator) makeVariants(ctx context.Context) error {
	for _, variant := range m.staged {
		productID, ok := m.products.Lookup(variant.BaseSKU)
		if !ok {
			return fatalf(CodeMissingProduct, variant.LegacyProductID, fmt.Sprintf("%+v", variant),
				"variant's base SKU %s resolved to no product", variant.BaseSKU)
		}
		id, err := m.insertVariant(ctx, variant, productID)
		if err != nil {
			return err
		}
		m.variants.Register(variant.LegacyProductID, id)
		m.stats.insert("variants")
	}
	m.staged = nil

	for _, rec := range m.exceptions.RecreatedProducts {
		base := strings.ToUpper(rec.BaseSKU)
		productID, ok := m.products.Lookup(base)
		if !ok {
			return fatalf(CodeMissingProduct, rec.LegacyID, "",
				"recreated product aliases unknown base SKU %s", base)
		}
		existing, found, err := m.db.VariantBySuffix(ctx, productID, strings.ToUpper(rec.Suffix))
		if err != nil {
			return err
		}
		if !found {
			return fatalf(CodeMissingProduct, rec.LegacyID, "",
				"recreated product aliases missing variant %s%s", base, rec.Suffix)
		}
		m.variants.Register(rec.LegacyID, existing.ID)
	}

	for _, del := range m.exceptions.DeletedProducts {
		base := strings.ToUpper(del.SKU)
		name := del.Name
		if name == "" {
			name = "Discontinued Product " + base
		}
		product := staging.Product{
			BaseSKU:  base,
			Name:     name,
			Slug:     staging.Slugify(name + " " + base),
			IsActive: false,
		}
		productID, err := m.db.InsertProduct(ctx, product, 0)
		if err != nil {
			return err
		}
		variantID, err := m.db.InsertVariant(ctx, staging.Variant{BaseSKU: base}, productID)
		if err != nil {
			return err
		}
		m.products.Register(base, productID)
		m.variants.Register(del.LegacyID, variantID)
		m.stats.insert("products")
		m.stats.insert("variants")
	}
	return nil
}

// insertVariant applies the (product, suffix) collision policy: an
// inactive variant colliding with any other is renamed to the reserved
// sentinel, two active variants colliding is a fatal inconsistency.
func (m *Migrator) insertVariant(ctx context.Context, v staging.Variant, productID int64) (int64, error) {
	existing, found, err := m.db.VariantBySuffix(ctx, productID, v.Suffix)
	if err != nil {
		return 0, err
	}
	if !found {
		return m.db.InsertVariant(ctx, v, productID)
	}

	switch {
	case existing.IsActive && v.IsActive:
		return 0, fatalf(CodeVariantCollision, v.LegacyProductID, fmt.Sprintf("%+v", v),
			"two active variants share SKU %s%s", v.BaseSKU, v.Suffix)
	case v.IsActive:
		// The earlier, inactive variant yields its suffix to the active
		// newcomer.
		if err := m.ensureSentinelFree(ctx, productID, v); err != nil {
			return 0, err
		}
		if err := m.db.UpdateVariantSuffix(ctx, existing.ID, InactiveSuffix); err != nil {
			return 0, err
		}
		return m.db.InsertVariant(ctx, v, productID)
	default:
		if err := m.ensureSentinelFree(ctx, productID, v); err != nil {
			return 0, err
		}
		v.Suffix = InactiveSuffix
		return m.db.InsertVariant(ctx, v, productID)
	}
}

// ensureSentinelFree guards the one reserved suffix slot per product. A
// third variant landing on the same SKU would need a second sentinel, so
// the run stops with the offending row identified instead of tripping the
// unique constraint.
func (m *Migrator) ensureSentinelFree(ctx context.Context, productID int64, v staging.Variant) error {
	_, taken, err := m.db.VariantBySuffix(ctx, productID, InactiveSuffix)
	if err != nil {
		return err
	}
	if taken {
		return fatalf(CodeVariantCollision, v.LegacyProductID, fmt.Sprintf("%+v", v),
			"more than two variants share SKU %s%s", v.BaseSKU, v.Suffix)
	}
	return nil
}

// makeSeedAttributes attaches growing attributes; a product miss is logged
// and skipped.
func (m *Migrator) makeSeedAttributes(ctx context.Context) error {
	rows, err := m.reader.SeedAttributes(ctx)
	if err != nil {
		return err
	}
	attrs := make([]staging.SeedAttribute, 0, len(rows))
	for _, row := range rows {
		attr, err := staging.DecodeSeedAttribute(row)
		if err != nil {
			return err
		}
		attrs = append(attrs, attr)
	}
	// One legacy row per variant means one flag row per variant; collapse
	// them onto the base SKU before attaching.
	attrs = staging.MergeBy(attrs,
		func(a staging.SeedAttribute) string { return a.BaseSKU },
		func(acc, next staging.SeedAttribute) staging.SeedAttribute {
			acc.IsOrganic = acc.IsOrganic || next.IsOrganic
			acc.IsHeirloom = acc.IsHeirloom || next.IsHeirloom
			acc.IsSmallGrower = acc.IsSmallGrower || next.IsSmallGrower
			acc.IsRegional = acc.IsRegional || next.IsRegional
			return acc
		})
	for _, attr := range attrs {
		productID, ok := m.products.Lookup(attr.BaseSKU)
		if !ok {
			m.log.Warn().Str("base_sku", attr.BaseSKU).
				Msg("skipping seed attribute: no product for base SKU")
			m.stats.skip("seed attributes")
			continue
		}
		if _, err := m.db.InsertSeedAttribute(ctx, attr, productID); err != nil {
			return err
		}
		m.stats.insert("seed attributes")
	}
	return nil
}

// makeProductSales attaches sale prices; a variant miss is logged and
// skipped.
func (m *Migrator) makeProductSales(ctx context.Context) error {
	rows, err := m.reader.ProductSales(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		sale, err := staging.DecodeProductSale(row)
		if err != nil {
			return err
		}
		variantID, ok := m.variants.Lookup(sale.LegacyProductID)
		if !ok {
			m.log.Warn().Int64("legacy_product_id", sale.LegacyProductID).
				Msg("skipping product sale: no variant for legacy product")
			m.stats.skip("product sales")
			continue
		}
		if _, err := m.db.InsertProductSale(ctx, sale, variantID); err != nil {
			return err
		}
		m.stats.insert("product sales")
	}
	return nil
}

func (m *Migrator) makePages(ctx context.Context) error {
	rows, err := m.reader.Pages(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		page, err := staging.DecodePage(row)
		if err != nil {
			return err
		}
		if _, err := m.db.InsertPage(ctx, page); err != nil {
			return err
		}
		m.stats.insert("pages")
	}
	return nil
}

// makeCustomers reads both customer sources, merges by email, inserts the
// survivors, and registers every merged-away legacy ID against the one
// destination customer.
func (m *Migrator) makeCustomers(ctx context.Context) error {
	accountRows, err := m.reader.AccountCustomers(ctx)
	if err != nil {
		return err
	}
	guestRows, err := m.reader.GuestCustomers(ctx)
	if err != nil {
		return err
	}

	customers := make([]staging.Customer, 0, len(accountRows)+len(guestRows))
	for _, row := range append(accountRows, guestRows...) {
		customer, err := staging.DecodeCustomer(row)
		if err != nil {
			return err
		}
		customers = append(customers, customer)
	}
	customers = staging.MergeCustomers(customers)

	for _, customer := range customers {
		id, err := m.db.InsertCustomer(ctx, customer)
		if err != nil {
			return err
		}
		for _, legacyID := range customer.LegacyIDs {
			m.customers.Register(legacyID, id)
		}
		m.stats.insert("customers")
	}
	return nil
}

// makeAddresses inserts addresses. A customer miss is fatal; a
// content-identical duplicate is dropped; the first default per
// (customer, type) wins and later defaults are demoted on insert.
func (m *Migrator) makeAddresses(ctx context.Context) error {
	rows, err := m.reader.Addresses(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		addr, err := staging.DecodeAddress(row)
		if err != nil {
			return err
		}
		customerID, ok := m.customers.Lookup(addr.LegacyCustomerID)
		if !ok {
			return fatalf(CodeMissingCustomer, addr.LegacyCustomerID, fmt.Sprintf("%+v", addr),
				"address references unknown customer")
		}
		exists, err := m.db.AddressExists(ctx, customerID, addr)
		if err != nil {
			return err
		}
		if exists {
			m.stats.skip("addresses")
			continue
		}
		isDefault := addr.IsDefault
		if isDefault {
			taken, err := m.db.HasDefaultAddress(ctx, customerID, addr.Type)
			if err != nil {
				return err
			}
			if taken {
				isDefault = false
			}
		}
		if _, err := m.db.InsertAddress(ctx, addr, customerID, isDefault); err != nil {
			return err
		}
		m.stats.insert("addresses")
	}
	return nil
}

func (m *Migrator) seedDefaults(ctx context.Context) error {
	return m.db.SeedDefaults(ctx)
}

// makeCarts builds one cart per legacy customer with resolvable items,
// accumulating quantities for duplicate variants. A variant miss is logged
// and skipped, except the configured permanently deleted legacy products,
// which are dropped silently.
func (m *Migrator) makeCarts(ctx context.Context) error {
	rows, err := m.reader.CartItems(ctx)
	if err != nil {
		return err
	}
	ignored := make(map[int64]bool, len(m.exceptions.IgnoredCartProducts))
	for _, id := range m.exceptions.IgnoredCartProducts {
		ignored[id] = true
	}

	carts := make(map[int64]int64) // customer ID -> cart ID
	for _, row := range rows {
		item, err := staging.DecodeCartItem(row)
		if err != nil {
			return err
		}
		if ignored[item.LegacyProductID] {
			continue
		}
		customerID, ok := m.customers.Lookup(item.LegacyCustomerID)
		if !ok {
			m.log.Warn().Int64("legacy_customer_id", item.LegacyCustomerID).
				Msg("skipping cart item: no customer for legacy ID")
			m.stats.skip("cart items")
			continue
		}
		variantID, ok := m.variants.Lookup(item.LegacyProductID)
		if !ok {
			m.log.Warn().Int64("legacy_product_id", item.LegacyProductID).
				Msg("skipping cart item: no variant for legacy product")
			m.stats.skip("cart items")
			continue
		}
		cartID, ok := carts[customerID]
		if !ok {
			cartID, err = m.db.InsertCart(ctx, customerID)
			if err != nil {
				return err
			}
			carts[customerID] = cartID
			m.stats.insert("carts")
		}
		if err := m.db.UpsertCartItem(ctx, cartID, variantID, item.Quantity); err != nil {
			return err
		}
		m.stats.insert("cart items")
	}
	return nil
}

// purgeCartItems is the post-load integrity pass: any cart item whose
// product or variant ended the load inactive is removed.
func (m *Migrator) purgeCartItems(ctx context.Context) error {
	n, err := m.db.PurgeInactiveCartItems(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.Warn().Int64("purged", n).Msg("removed cart items referencing inactive variants")
	}
	return nil
}

func (m *Migrator) makeCoupons(ctx context.Context) error {
	rows, err := m.reader.Coupons(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		coupon, err := staging.DecodeCoupon(row)
		if err != nil {
			return err
		}
		if _, err := m.db.InsertCoupon(ctx, coupon); err != nil {
			return err
		}
		m.stats.insert("coupons")
	}
	return nil
}
