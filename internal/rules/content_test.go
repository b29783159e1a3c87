package rules

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

func TestIDRules(t *testing.T) {
	rec := record()
	IDSeller(t.Context(), rec, Context{SellerID: "s9", SalesChannel: "2"})
	IDSalesChannel(t.Context(), rec, Context{SellerID: "s9", SalesChannel: "2"})
	assert.Equal(t, "123#s9#2", rec.ID)

	rec = record()
	IDSeller(t.Context(), rec, Context{})
	assert.Equal(t, "123", rec.ID)
}

func TestGalleryDropsWholeURLs(t *testing.T) {
	long := "https://cdn/" + strings.Repeat("x", 1980)
	rec := record()
	rec.Detail = models.Detail{models.DetailImages: []string{"https://cdn/main.jpg", "https://cdn/a.jpg", long, "https://cdn/b.jpg"}}

	assert.True(t, Gallery{maxLen: MaxGalleryLength}.Apply(t.Context(), rec, Context{}))
	assert.Equal(t, "https://cdn/a.jpg,https://cdn/b.jpg", rec.AdditionalImageLink)
	assert.LessOrEqual(t, len(rec.AdditionalImageLink), MaxGalleryLength)
}

func TestGallerySingleImage(t *testing.T) {
	rec := record()
	rec.Detail = models.Detail{models.DetailImages: []string{"https://cdn/main.jpg"}}
	Gallery{maxLen: MaxGalleryLength}.Apply(t.Context(), rec, Context{})
	assert.Empty(t, rec.AdditionalImageLink)
}

func TestRichDescription(t *testing.T) {
	rec := record()
	rec.Detail = models.Detail{models.DetailDescriptionLong: "<p>Largo</p>", models.DetailName: "Corto"}
	RichDescription(t.Context(), rec, Context{})
	assert.Equal(t, "<p>Largo</p>", rec.RichTextDescription)

	rec = record()
	rec.Detail = models.Detail{models.DetailDescriptionLong: "", models.DetailName: "Corto"}
	RichDescription(t.Context(), rec, Context{})
	assert.Equal(t, "Corto", rec.RichTextDescription)

	rec = record()
	rec.RichTextDescription = "kept"
	rec.Detail = models.Detail{models.DetailDescriptionLong: nil, models.DetailName: "Corto"}
	RichDescription(t.Context(), rec, Context{})
	assert.Equal(t, "kept", rec.RichTextDescription)

	rec = record()
	rec.Detail = models.Detail{models.DetailName: "Corto"}
	RichDescription(t.Context(), rec, Context{})
	assert.Empty(t, rec.RichTextDescription)
}

func TestArchiveOutOfStock(t *testing.T) {
	rec := record()
	rec.Availability = models.AvailabilityOutOfStock
	assert.True(t, ArchiveOutOfStock(t.Context(), rec, Context{}))
	assert.Equal(t, models.StatusArchived, rec.Status)

	rec = record()
	ArchiveOutOfStock(t.Context(), rec, Context{})
	assert.Equal(t, models.StatusActive, rec.Status)
}

type specSource struct {
	specs []vtex.Specification
	err   error
	calls int
}

func (s *specSource) GetProductSpecification(context.Context, string, string) ([]vtex.Specification, error) {
	s.calls++
	return s.specs, s.err
}

func TestBrandFromSpecification(t *testing.T) {
	src := &specSource{specs: []vtex.Specification{
		{Name: "Origen", Value: []string{"AR"}},
		{Name: "marca", Value: []string{"La Serenísima"}},
	}}
	rule := BrandFromSpecification{field: "Marca"}

	rec := record()
	rec.Brand = ""
	rec.Detail = models.Detail{models.DetailProductID: "77"}
	assert.True(t, rule.Apply(t.Context(), rec, Context{Source: src, Domain: "shop.example"}))
	assert.Equal(t, "La Serenísima", rec.Brand)

	rec = record()
	rule.Apply(t.Context(), rec, Context{Source: src})
	assert.Equal(t, 1, src.calls, "brand already set skips the lookup")

	failing := &specSource{err: errors.New("boom")}
	rec = record()
	rec.Brand = ""
	rec.Detail = models.Detail{models.DetailProductID: "77"}
	assert.True(t, rule.Apply(t.Context(), rec, Context{Source: failing}))
	assert.Empty(t, rec.Brand)
}
