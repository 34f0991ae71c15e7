package shopdb

import (
	"context"
	"fmt"
)

// Static business data the destination needs but the legacy store never
// held. Loaded once per run after the customer stages.

type taxRate struct {
	country         string
	region          string
	rateThousandths int64
}

type surcharge struct {
	name        string
	amountCents int64
}

type shippingMethod struct {
	name           string
	thresholdCents int64
	amountCents    int64
	priority       int64
}

var seedTaxRates = []taxRate{
	{"US", "VA", 53}, // 5.3% home-state sales tax
}

var seedSurcharges = []surcharge{
	{"Fall Item Surcharge", 200},
	{"Sweet Potato Order Surcharge", 200},
}

var seedShippingMethods = []shippingMethod{
	{"Free Shipping", 3000, 0, 1},
	{"Priority Shipping", 0, 350, 2},
	{"International Shipping", 0, 1500, 3},
}

// SeedDefaults inserts the fixed tax, surcharge, and shipping rows.
func (d *DB) SeedDefaults(ctx context.Context) error {
	for _, t := range seedTaxRates {
		if _, err := d.exec(ctx, `
			INSERT INTO tax_rates (country_code, region_code, rate_thousandths)
			VALUES (?, ?, ?)
		`, t.country, t.region, t.rateThousandths); err != nil {
			return fmt.Errorf("seed tax rate %s/%s: %w", t.country, t.region, err)
		}
	}
	for _, s := range seedSurcharges {
		if _, err := d.exec(ctx, `
			INSERT INTO surcharges (name, amount_cents) VALUES (?, ?)
		`, s.name, s.amountCents); err != nil {
			return fmt.Errorf("seed surcharge %q: %w", s.name, err)
		}
	}
	for _, m := range seedShippingMethods {
		if _, err := d.exec(ctx, `
			INSERT INTO shipping_methods (name, threshold_cents, amount_cents, priority)
			VALUES (?, ?, ?, ?)
		`, m.name, m.thresholdCents, m.amountCents, m.priority); err != nil {
			return fmt.Errorf("seed shipping method %q: %w", m.name, err)
		}
	}
	return nil
}
