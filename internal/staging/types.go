// Package staging holds the transient records that exist between reading a
// legacy row and inserting its converted form into the destination store,
// plus the pure functions that produce them: row decoders, field
// normalization, and natural-key mergers.
//
// Nothing in this package touches a database. Records are handed by value
// from stage to stage and never outlive a run.
package staging

import "time"

// Category is a staged category. Parent references use the legacy category
// ID; the orchestrator resolves it against the category ID map, relying on
// the source query returning parents before children.
type Category struct {
	LegacyID       int64
	LegacyParentID int64 // 0 means top-level
	Name           string
	Slug           string
	Description    string
	ImagePath      string
	SortOrder      int64
}

// Product is a staged product, keyed by its base SKU. Duplicate base SKUs
// from the source are merged before insertion (see MergeProducts).
type Product struct {
	BaseSKU          string // uppercased, natural key
	Name             string
	Slug             string
	ShortDescription string
	LongDescription  string
	ImagePath        string
	IsActive         bool
	LegacyCategoryID int64 // 0 means uncategorized
}

// Variant is a staged product variant. The owning product is referenced by
// base SKU and resolved to a destination product ID at insert time.
type Variant struct {
	LegacyProductID  int64 // the legacy row that produced this variant
	BaseSKU          string
	Suffix           string // empty for the bare variant
	PriceCents       int64
	Quantity         int64
	WeightMilligrams int64
	IsActive         bool
}

// Customer is a staged customer, keyed by email (case-sensitive as stored).
// LegacyIDs accumulates every legacy customer ID that merged into this
// record; all of them register against the one destination customer.
type Customer struct {
	LegacyIDs        []int64
	Email            string
	StoreCreditCents int64
	IsWholesale      bool
}

// AddressType distinguishes the destination's shipping and billing books.
type AddressType string

const (
	AddressShipping AddressType = "shipping"
	AddressBilling  AddressType = "billing"
)

// Address is a staged address owned by a legacy customer ID.
type Address struct {
	LegacyCustomerID int64
	Type             AddressType
	FirstName        string
	LastName         string
	Company          string
	AddressLineOne   string
	AddressLineTwo   string
	City             string
	Region           Region
	PostalCode       string
	CountryCode      string
	IsDefault        bool
}

// CartItem is one staged basket line: a legacy customer wants Quantity of
// the variant identified by a legacy product ID.
type CartItem struct {
	LegacyCustomerID int64
	LegacyProductID  int64
	Quantity         int64
}

// Coupon is a staged discount code. No ID remapping is needed; the insert
// is a straight bulk copy.
type Coupon struct {
	Code            string
	Name            string
	Discount        Discount
	MinOrderCents   int64
	Expires         time.Time
	TotalUses       int64
	UsesPerCustomer int64
	IsActive        bool
}

// DiscountKind enumerates the destination's coupon discount forms.
type DiscountKind string

const (
	DiscountFlat         DiscountKind = "flat"
	DiscountPercent      DiscountKind = "percent"
	DiscountFreeShipping DiscountKind = "free_shipping"
)

// Discount pairs a discount kind with its magnitude. AmountCents is used by
// flat discounts, WholePercent by percentage discounts, neither by free
// shipping.
type Discount struct {
	Kind         DiscountKind
	AmountCents  int64
	WholePercent int64
}

// ProductSale is a staged per-variant sale price, attached through the
// variant ID map by the legacy product ID.
type ProductSale struct {
	LegacyProductID int64
	PriceCents      int64
	Start           time.Time
	End             time.Time
}

// CategorySale is a staged category-wide sale. LegacyCategoryIDs is the
// parsed form of the source's comma-separated category list; every entry
// must resolve or the run aborts.
type CategorySale struct {
	Name              string
	Discount          Discount
	LegacyCategoryIDs []int64
	Start             time.Time
	End               time.Time
}

// SeedAttribute carries the growing-attribute flags for one product,
// attached by base SKU.
type SeedAttribute struct {
	BaseSKU       string
	IsOrganic     bool
	IsHeirloom    bool
	IsSmallGrower bool
	IsRegional    bool
}

// Page is a staged static content page.
type Page struct {
	Name    string
	Slug    string
	Content string
}
