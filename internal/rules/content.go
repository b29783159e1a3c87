package rules

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// MaxGalleryLength caps the joined additional_image_link value.
const MaxGalleryLength = 2000

// IDSeller appends "#<seller>" to the record id.
func IDSeller(_ context.Context, rec *models.ProductRecord, rc Context) bool {
	if rc.SellerID != "" {
		rec.ID += "#" + rc.SellerID
	}
	return true
}

// IDSalesChannel appends "#<sales channel>" to the record id.
func IDSalesChannel(_ context.Context, rec *models.ProductRecord, rc Context) bool {
	if rc.SalesChannel != "" {
		rec.ID += "#" + rc.SalesChannel
	}
	return true
}

// Gallery joins every image but the first (Detail images) into
// AdditionalImageLink. URLs that would push the value past maxLen are skipped
// whole.
type Gallery struct {
	maxLen int
}

func newGallery(params map[string]any) (Rule, error) {
	n, err := paramInt(params, "max_length", MaxGalleryLength)
	if err != nil {
		return nil, err
	}
	return Gallery{maxLen: n}, nil
}

func (g Gallery) Apply(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	images := rec.Detail.Strings(models.DetailImages)
	if len(images) < 2 {
		return true
	}
	var b strings.Builder
	for _, url := range images[1:] {
		if url == "" {
			continue
		}
		extra := len(url)
		if b.Len() > 0 {
			extra++
		}
		if b.Len()+extra > g.maxLen {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(url)
	}
	rec.AdditionalImageLink = b.String()
	return true
}

// RichDescription sets RichTextDescription from Detail description_long.
// An empty long description falls back to Detail name; an absent or nil one
// leaves the record untouched.
func RichDescription(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	long, ok := rec.Detail.String(models.DetailDescriptionLong)
	if !ok {
		return true
	}
	if long != "" {
		rec.RichTextDescription = long
		return true
	}
	if name, ok := rec.Detail.String(models.DetailName); ok {
		rec.RichTextDescription = name
	}
	return true
}

// ArchiveOutOfStock marks unavailable records as archived instead of active.
func ArchiveOutOfStock(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	if !rec.InStock() {
		rec.Status = models.StatusArchived
	}
	return true
}

// BrandFromSpecification fills an empty brand from a product specification
// field (param "field", default "Marca"). Reads Detail product_id.
type BrandFromSpecification struct {
	field string
}

func newBrandFromSpecification(params map[string]any) (Rule, error) {
	return BrandFromSpecification{field: paramString(params, "field", "Marca")}, nil
}

func (r BrandFromSpecification) Apply(ctx context.Context, rec *models.ProductRecord, rc Context) bool {
	if rec.Brand != "" || rc.Source == nil {
		return true
	}
	productID, ok := rec.Detail.String(models.DetailProductID)
	if !ok || productID == "" {
		return true
	}
	specs, err := rc.Source.GetProductSpecification(ctx, productID, rc.Domain)
	if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("Failed to fetch product specification")
		return true
	}
	for _, s := range specs {
		if strings.EqualFold(s.Name, r.field) && len(s.Value) > 0 {
			rec.Brand = s.Value[0]
			break
		}
	}
	return true
}
