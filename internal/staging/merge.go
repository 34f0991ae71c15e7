package staging

// MergeBy groups records sharing a natural key and folds each group into a
// single record, preserving the order in which keys were first seen. The
// combine function receives the record accumulated so far and the next
// duplicate.
func MergeBy[T any, K comparable](records []T, key func(T) K, combine func(T, T) T) []T {
	index := make(map[K]int, len(records))
	out := make([]T, 0, len(records))
	for _, rec := range records {
		k := key(rec)
		if i, ok := index[k]; ok {
			out[i] = combine(out[i], rec)
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}

// MergeProducts collapses staged products sharing a base SKU. The legacy
// store carries one row per variant, so every multi-variant product arrives
// here several times over. The first-seen row's fields win; the active flag
// is OR'd so a product with any active variant row stays visible.
func MergeProducts(products []Product) []Product {
	return MergeBy(products,
		func(p Product) string { return p.BaseSKU },
		func(acc, next Product) Product {
			acc.IsActive = acc.IsActive || next.IsActive
			return acc
		})
}

// MergeCustomers collapses staged customers sharing an email. Store credit
// is summed and every legacy ID is kept so each can be registered against
// the one surviving destination customer. Identity fields come from the
// first-seen record (account rows are read before guest-checkout rows, so
// the account identity wins).
func MergeCustomers(customers []Customer) []Customer {
	return MergeBy(customers,
		func(c Customer) string { return c.Email },
		func(acc, next Customer) Customer {
			acc.StoreCreditCents += next.StoreCreditCents
			acc.IsWholesale = acc.IsWholesale || next.IsWholesale
			acc.LegacyIDs = append(acc.LegacyIDs, next.LegacyIDs...)
			return acc
		})
}
