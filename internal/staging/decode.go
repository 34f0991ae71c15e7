package staging

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"replant/internal/legacy"
)

// DecodeError reports a legacy row whose values do not fit the destination
// schema. Decode errors always abort the run: they mean the source schema
// drifted from what this engine was written against.
type DecodeError struct {
	Entity    string
	LegacyKey string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s %s: %v", e.Entity, e.LegacyKey, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(entity string, key any, err error) error {
	return &DecodeError{Entity: entity, LegacyKey: fmt.Sprint(key), Err: err}
}

// DecodeCategory converts one legacy category row.
func DecodeCategory(row legacy.CategoryRow) (Category, error) {
	name := CleanText(row.Name)
	if name == "" {
		return Category{}, decodeErr("category", row.ID, fmt.Errorf("empty name"))
	}
	return Category{
		LegacyID:       row.ID,
		LegacyParentID: row.ParentID,
		Name:           name,
		Slug:           Slugify(name),
		Description:    CleanText(row.Description),
		ImagePath:      strings.TrimSpace(row.Image),
		SortOrder:      row.SortOrder,
	}, nil
}

// DecodeProduct converts one legacy product row into the staged product it
// seeds and the staged variant it carries. The legacy schema keeps one row
// per variant, so multi-variant products come through here once per
// variant and are merged by base SKU afterwards. The long description is
// not decoded here; the pipeline fetches it per surviving product and
// attaches it with SetDescription.
func DecodeProduct(row legacy.ProductRow) (Product, Variant, error) {
	base, suffix := SplitSKU(strings.TrimSpace(row.Model))
	base = strings.ToUpper(base)
	if base == "" {
		return Product{}, Variant{}, decodeErr("product", row.ID, fmt.Errorf("empty SKU %q", row.Model))
	}
	name := CleanText(row.Name)
	if name == "" {
		return Product{}, Variant{}, decodeErr("product", row.ID, fmt.Errorf("empty name"))
	}

	price, err := DollarsToCents(row.Price)
	if err != nil {
		return Product{}, Variant{}, decodeErr("product", row.ID, err)
	}
	weight, err := GramsToMilligrams(row.Weight)
	if err != nil {
		return Product{}, Variant{}, decodeErr("product", row.ID, err)
	}
	quantity, err := decodeQuantity(row.Quantity)
	if err != nil {
		return Product{}, Variant{}, decodeErr("product", row.ID, err)
	}

	product := Product{
		BaseSKU:          base,
		Name:             name,
		Slug:             Slugify(name),
		ImagePath:        strings.TrimSpace(row.Image),
		IsActive:         row.Status == 1,
		LegacyCategoryID: row.CategoryID,
	}
	variant := Variant{
		LegacyProductID:  row.ID,
		BaseSKU:          base,
		Suffix:           strings.ToUpper(suffix),
		PriceCents:       price,
		Quantity:         quantity,
		WeightMilligrams: weight,
		IsActive:         row.Status == 1,
	}
	return product, variant, nil
}

// SetDescription attaches the separately fetched long description and
// derives the listing-page short form from it.
func (p *Product) SetDescription(long string) {
	long = CleanText(long)
	p.LongDescription = long
	p.ShortDescription = shortDescription(long)
}

// shortDescription trims the long description down to its first paragraph,
// capped at 255 runes, for the listing pages.
func shortDescription(long string) string {
	first, _, _ := strings.Cut(long, "\n")
	runes := []rune(first)
	if len(runes) > 255 {
		return strings.TrimSpace(string(runes[:255]))
	}
	return first
}

// DecodeCustomer converts one legacy customer row from either source
// query. The store-credit balance defaults to zero when the legacy store
// has no entry.
func DecodeCustomer(row legacy.CustomerRow) (Customer, error) {
	email := strings.TrimSpace(row.Email)
	if email == "" {
		return Customer{}, decodeErr("customer", row.ID, fmt.Errorf("empty email"))
	}
	credit, err := DollarsToCents(row.StoreCredit)
	if err != nil {
		return Customer{}, decodeErr("customer", row.ID, err)
	}
	return Customer{
		LegacyIDs:        []int64{row.ID},
		Email:            email,
		StoreCreditCents: credit,
		IsWholesale:      row.Wholesale == 1,
	}, nil
}

// DecodeAddress converts one legacy address-book entry, normalizing the
// country code and region. An unknown country or an unknown United
// States/Canada region is a decode error: the run stops rather than
// guessing at an address.
func DecodeAddress(row legacy.AddressRow) (Address, error) {
	country, err := NormalizeCountry(row.CountryCode)
	if err != nil {
		return Address{}, decodeErr("address", row.CustomerID, err)
	}
	region, err := NormalizeRegion(country, row.State)
	if err != nil {
		return Address{}, decodeErr("address", row.CustomerID, err)
	}
	addrType := AddressShipping
	if row.Type == "billing" {
		addrType = AddressBilling
	}
	return Address{
		LegacyCustomerID: row.CustomerID,
		Type:             addrType,
		FirstName:        CleanText(row.FirstName),
		LastName:         CleanText(row.LastName),
		Company:          CleanText(row.Company),
		AddressLineOne:   CleanText(row.Street),
		AddressLineTwo:   CleanText(row.Suburb),
		City:             CleanText(row.City),
		Region:           region,
		PostalCode:       strings.TrimSpace(row.PostalCode),
		CountryCode:      country,
		IsDefault:        row.IsDefault == 1,
	}, nil
}

// DecodeCartItem converts one legacy basket line. The legacy store kept
// quantities as decimals; they round to the nearest whole unit.
func DecodeCartItem(row legacy.CartItemRow) (CartItem, error) {
	quantity, err := decodeQuantity(row.Quantity)
	if err != nil {
		return CartItem{}, decodeErr("cart item", row.CustomerID, err)
	}
	return CartItem{
		LegacyCustomerID: row.CustomerID,
		LegacyProductID:  row.ProductID,
		Quantity:         quantity,
	}, nil
}

// DecodeCoupon converts one legacy coupon row.
func DecodeCoupon(row legacy.CouponRow) (Coupon, error) {
	discount, err := decodeCouponDiscount(row.Kind, row.Amount)
	if err != nil {
		return Coupon{}, decodeErr("coupon", row.Code, err)
	}
	minimum, err := DollarsToCents(row.MinOrder)
	if err != nil {
		return Coupon{}, decodeErr("coupon", row.Code, err)
	}
	expires, err := decodeTime(row.Expires)
	if err != nil {
		return Coupon{}, decodeErr("coupon", row.Code, err)
	}
	return Coupon{
		Code:            strings.TrimSpace(row.Code),
		Name:            CleanText(row.Name),
		Discount:        discount,
		MinOrderCents:   minimum,
		Expires:         expires,
		TotalUses:       row.UsesPerCoupon,
		UsesPerCustomer: row.UsesPerCustomer,
		IsActive:        row.Active == "Y",
	}, nil
}

func decodeCouponDiscount(kind, amount string) (Discount, error) {
	switch kind {
	case "F":
		cents, err := DollarsToCents(amount)
		if err != nil {
			return Discount{}, err
		}
		return Discount{Kind: DiscountFlat, AmountCents: cents}, nil
	case "P":
		percent, err := decodePercent(amount)
		if err != nil {
			return Discount{}, err
		}
		return Discount{Kind: DiscountPercent, WholePercent: percent}, nil
	case "S":
		return Discount{Kind: DiscountFreeShipping}, nil
	default:
		return Discount{}, fmt.Errorf("unknown coupon type %q", kind)
	}
}

// DecodeProductSale converts one legacy special price.
func DecodeProductSale(row legacy.ProductSaleRow) (ProductSale, error) {
	price, err := DollarsToCents(row.Price)
	if err != nil {
		return ProductSale{}, decodeErr("product sale", row.ProductID, err)
	}
	start, err := decodeTime(row.Start)
	if err != nil {
		return ProductSale{}, decodeErr("product sale", row.ProductID, err)
	}
	end, err := decodeTime(row.End)
	if err != nil {
		return ProductSale{}, decodeErr("product sale", row.ProductID, err)
	}
	return ProductSale{
		LegacyProductID: row.ProductID,
		PriceCents:      price,
		Start:           start,
		End:             end,
	}, nil
}

// DecodeCategorySale converts one legacy category-wide sale, parsing the
// comma-separated category ID list.
func DecodeCategorySale(row legacy.CategorySaleRow) (CategorySale, error) {
	var discount Discount
	switch row.DeductionType {
	case 0:
		cents, err := DollarsToCents(row.DeductionValue)
		if err != nil {
			return CategorySale{}, decodeErr("category sale", row.Name, err)
		}
		discount = Discount{Kind: DiscountFlat, AmountCents: cents}
	case 1:
		percent, err := decodePercent(row.DeductionValue)
		if err != nil {
			return CategorySale{}, decodeErr("category sale", row.Name, err)
		}
		discount = Discount{Kind: DiscountPercent, WholePercent: percent}
	default:
		return CategorySale{}, decodeErr("category sale", row.Name,
			fmt.Errorf("unknown deduction type %d", row.DeductionType))
	}

	var ids []int64
	for _, part := range strings.Split(row.Categories, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return CategorySale{}, decodeErr("category sale", row.Name,
				fmt.Errorf("bad category list %q: %w", row.Categories, err))
		}
		ids = append(ids, id)
	}

	start, err := decodeTime(row.Start)
	if err != nil {
		return CategorySale{}, decodeErr("category sale", row.Name, err)
	}
	end, err := decodeTime(row.End)
	if err != nil {
		return CategorySale{}, decodeErr("category sale", row.Name, err)
	}
	return CategorySale{
		Name:              CleanText(row.Name),
		Discount:          discount,
		LegacyCategoryIDs: ids,
		Start:             start,
		End:               end,
	}, nil
}

// DecodeSeedAttribute converts one legacy growing-attribute row, keyed by
// the base SKU of the product it describes.
func DecodeSeedAttribute(row legacy.SeedAttributeRow) (SeedAttribute, error) {
	base, _ := SplitSKU(strings.TrimSpace(row.Model))
	base = strings.ToUpper(base)
	if base == "" {
		return SeedAttribute{}, decodeErr("seed attribute", row.Model, fmt.Errorf("empty SKU"))
	}
	return SeedAttribute{
		BaseSKU:       base,
		IsOrganic:     row.Organic == 1,
		IsHeirloom:    row.Heirloom == 1,
		IsSmallGrower: row.SmallGrower == 1,
		IsRegional:    row.Regional == 1,
	}, nil
}

// DecodePage converts one legacy static page.
func DecodePage(row legacy.PageRow) (Page, error) {
	title := CleanText(row.Title)
	if title == "" {
		return Page{}, decodeErr("page", row.Title, fmt.Errorf("empty title"))
	}
	return Page{
		Name:    title,
		Slug:    Slugify(title),
		Content: CleanText(row.Body),
	}, nil
}

// decodeQuantity parses the legacy store's decimal quantities to the
// nearest whole unit, never below zero.
func decodeQuantity(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", raw, err)
	}
	q := int64(math.Round(f))
	if q < 0 {
		q = 0
	}
	return q, nil
}

// decodePercent parses a decimal percentage to a whole percent, rounding
// to nearest.
func decodePercent(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse percent %q: %w", raw, err)
	}
	return int64(math.Round(f)), nil
}

// legacy datetime columns come back in one of two text forms; zero dates
// decode to the zero time.
var timeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

func decodeTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "0000-00-00") || strings.HasPrefix(s, "0001-01-01") {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", raw)
}
