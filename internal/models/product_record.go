package models

import "strconv"

// Availability values of a ProductRecord.
const (
	AvailabilityInStock    = "in stock"
	AvailabilityOutOfStock = "out of stock"
)

// Status values of a ProductRecord.
const (
	StatusActive   = "Active"
	StatusArchived = "archived"
)

// ConditionNew is the only condition the source system sells.
const ConditionNew = "new"

// ProductRecord is the destination-ready product. Price and SalePrice hold
// integer minor units until a currency rule formats them.
type ProductRecord struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	RichTextDescription string `json:"rich_text_description,omitempty"`
	Availability        string `json:"availability"`
	Status              string `json:"status"`
	Condition           string `json:"condition"`
	Price               string `json:"price,omitempty"`
	SalePrice           string `json:"sale_price,omitempty"`
	Link                string `json:"link"`
	ImageLink           string `json:"image_link"`
	AdditionalImageLink string `json:"additional_image_link,omitempty"`
	Brand               string `json:"brand"`

	// Detail carries raw source fields for rules. It is never uploaded.
	Detail Detail `json:"-"`
}

// InStock reports whether the record is sellable.
func (r *ProductRecord) InStock() bool {
	return r.Availability == AvailabilityInStock
}

// Detail keys written by the product mapper.
const (
	DetailSKUID           = "sku_id"
	DetailProductID       = "product_id"
	DetailSellerID        = "seller_id"
	DetailName            = "name"
	DetailDescriptionLong = "description_long"
	DetailCategories      = "categories"
	DetailCategoryPath    = "category_path"
	DetailImages          = "images"
	DetailMeasurementUnit = "measurement_unit"
	DetailUnitMultiplier  = "unit_multiplier"
	DetailWeightKg        = "weight_kg"
	DetailListPrice       = "list_price"
	DetailPriceBreakdown  = "price_breakdown"
	DetailSellers         = "sellers"
)

// Detail is the open bag of source attributes. Values are whatever the mapper
// stored; the typed getters tolerate missing or mistyped entries.
type Detail map[string]any

// Has reports whether key is present with a non-nil value.
func (d Detail) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// String returns the value of key as a string.
func (d Detail) String(key string) (string, bool) {
	switch v := d[key].(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	default:
		return "", false
	}
}

// Float returns the value of key as a float64.
func (d Detail) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Strings returns the value of key as a string slice.
func (d Detail) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
