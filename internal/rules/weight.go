package rules

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// weightKeywords mark by-weight products in the category path, title or description.
var weightKeywords = []string{"granel", "por kg", "x kg", "pesable"}

// UnitSuffix is appended to the title of by-weight products.
const UnitSuffix = " (x un.)"

// WeightPrice reprices by-weight products to the sold unit.
//
// Reads Detail keys measurement_unit, unit_multiplier, weight_kg and
// category_path. Price and SalePrice must still be integer minor units, so
// the rule has to run before any currency rule.
type WeightPrice struct{}

func newWeightPrice(map[string]any) (Rule, error) { return WeightPrice{}, nil }

func (WeightPrice) Apply(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	if !isByWeight(rec) {
		return true
	}
	weight, ok := rec.Detail.Float(models.DetailWeightKg)
	if !ok || weight <= 0 {
		return true
	}
	multiplier, ok := rec.Detail.Float(models.DetailUnitMultiplier)
	if !ok || multiplier <= 0 {
		multiplier = 1
	}

	price, err := strconv.ParseInt(rec.Price, 10, 64)
	if err != nil {
		return true
	}
	newPrice := int64(math.Round(float64(price) * multiplier))
	rec.Price = strconv.FormatInt(newPrice, 10)
	if sale, err := strconv.ParseInt(rec.SalePrice, 10, 64); err == nil {
		rec.SalePrice = strconv.FormatInt(int64(math.Round(float64(sale)*multiplier)), 10)
	}

	perKg := float64(newPrice) / (weight * multiplier)
	note := fmt.Sprintf("Aprox. %s. Precio por kg: $%s", FormatGrams(weight*1000), strconv.FormatFloat(perKg/100, 'f', 2, 64))
	if rec.Description == "" {
		rec.Description = note
	} else {
		rec.Description = strings.TrimRight(rec.Description, " ") + " " + note
	}
	if !strings.HasSuffix(rec.Title, UnitSuffix) {
		rec.Title += UnitSuffix
	}
	return true
}

func isByWeight(rec *models.ProductRecord) bool {
	if unit, ok := rec.Detail.String(models.DetailMeasurementUnit); ok && strings.EqualFold(unit, "kg") {
		return true
	}
	path, _ := rec.Detail.String(models.DetailCategoryPath)
	haystack := strings.ToLower(path + " " + rec.Title + " " + rec.Description)
	for _, kw := range weightKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// FormatGrams renders grams as "500g" or, from 1000 up, with a dot thousands
// separator: "1.500g".
func FormatGrams(grams float64) string {
	g := int64(math.Round(grams))
	s := strconv.FormatInt(g, 10)
	if g < 1000 {
		return s + "g"
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String() + "g"
}
