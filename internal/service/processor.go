package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/queue"
	"github.com/GTDGit/catalog_sync/internal/rules"
	"github.com/GTDGit/catalog_sync/internal/utils"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

// SellerAttributeSKUSellers resolves sellers per item from the SKU's own seller list.
const SellerAttributeSKUSellers = "SkuSellers"

// Run is the immutable context shared by every item of a sync run.
type Run struct {
	Catalog *models.Catalog
	Chain   *rules.Chain
	Mode    models.SyncMode
	// Sellers is the explicit or pre-listed seller set. When empty and the
	// catalog names a seller attribute, sellers come from each item.
	Sellers []string
	// UpdateMode keeps inactive and unavailable products so they reach the
	// destination as out of stock.
	UpdateMode bool
}

// MissingFieldsError lists required fields a record lacks.
type MissingFieldsError struct {
	ProductID string
	Fields    []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("product %s missing required fields: %s", e.ProductID, strings.Join(e.Fields, ", "))
}

// chainFilledFields may be empty after mapping because a rule can fill them.
var chainFilledFields = []string{"brand"}

// CheckRequired verifies the fields the destination catalog rejects when empty.
// Fields named in skip are not checked.
func CheckRequired(rec *models.ProductRecord, skip ...string) error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"title", rec.Title},
		{"description", rec.Description},
		{"availability", rec.Availability},
		{"status", rec.Status},
		{"condition", rec.Condition},
		{"link", rec.Link},
		{"image_link", rec.ImageLink},
		{"brand", rec.Brand},
	} {
		if slices.Contains(skip, f.name) {
			continue
		}
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if rec.InStock() && strings.TrimSpace(rec.Price) == "" {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{ProductID: rec.ID, Fields: missing}
	}
	return nil
}

// ProductProcessor extracts, validates and transforms one queue item.
type ProductProcessor struct {
	source    Source
	validator *SKUValidator
}

// NewProductProcessor constructs a ProductProcessor.
func NewProductProcessor(source Source, validator *SKUValidator) *ProductProcessor {
	return &ProductProcessor{source: source, validator: validator}
}

// Process dispatches item by run mode.
func (p *ProductProcessor) Process(ctx context.Context, run *Run, item string) ([]models.ProductRecord, error) {
	switch run.Mode {
	case models.SyncModeSingle:
		return p.ProcessSingle(ctx, run, item)
	case models.SyncModeSellerSKU:
		return p.ProcessSellerSKU(ctx, run, item)
	default:
		return nil, fmt.Errorf("%w: %q", utils.ErrInvalidMode, run.Mode)
	}
}

// ProcessSingle simulates one SKU against every resolved seller.
func (p *ProductProcessor) ProcessSingle(ctx context.Context, run *Run, skuID string) ([]models.ProductRecord, error) {
	details, err := p.validate(ctx, run, skuID)
	if err != nil || details == nil {
		return nil, err
	}

	sellers := run.Sellers
	if len(sellers) == 0 && run.Catalog.SellerAttribute == SellerAttributeSKUSellers {
		for _, s := range details.SkuSellers {
			if s.IsActive {
				sellers = append(sellers, s.SellerID)
			}
		}
	}
	if len(sellers) == 0 {
		return nil, nil
	}

	offers, err := p.source.SimulateMultiSeller(ctx, skuID, sellers, run.Catalog.Domain(), run.Catalog.SalesChannel)
	if err != nil {
		return nil, fmt.Errorf("simulate sku %s: %w", skuID, err)
	}

	var out []models.ProductRecord
	for _, sellerID := range sellers {
		offer, ok := offers[sellerID]
		if !ok {
			continue
		}
		if rec, ok := p.build(ctx, run, details, &offer); ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// ProcessSellerSKU handles one "seller_id#sku_id" item.
func (p *ProductProcessor) ProcessSellerSKU(ctx context.Context, run *Run, item string) ([]models.ProductRecord, error) {
	sellerID, skuID, ok := queue.SplitSellerSKU(item)
	if !ok {
		return nil, fmt.Errorf("%w: %q", utils.ErrInvalidQueueItem, item)
	}
	details, err := p.validate(ctx, run, skuID)
	if err != nil || details == nil {
		return nil, err
	}

	offer, err := p.source.SimulateSingleSeller(ctx, skuID, sellerID, run.Catalog.Domain(), run.Catalog.SalesChannel)
	if err != nil {
		return nil, fmt.Errorf("simulate sku %s seller %s: %w", skuID, sellerID, err)
	}
	rec, ok := p.build(ctx, run, details, offer)
	if !ok {
		return nil, nil
	}
	return []models.ProductRecord{*rec}, nil
}

func (p *ProductProcessor) validate(ctx context.Context, run *Run, skuID string) (*vtex.SKUDetails, error) {
	details, err := p.validator.Validate(ctx, skuID, run.Catalog)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, nil
	}
	if !details.IsActive && !run.UpdateMode {
		log.Debug().Int("catalog_id", run.Catalog.ID).Str("sku_id", skuID).Msg("Skipping inactive SKU")
		return nil, nil
	}
	return details, nil
}

// build maps, checks and transforms one offer. ok is false when the record is dropped.
func (p *ProductProcessor) build(ctx context.Context, run *Run, details *vtex.SKUDetails, offer *vtex.Availability) (*models.ProductRecord, bool) {
	if !offer.Available && !run.UpdateMode {
		return nil, false
	}
	rec := MapRecord(details, offer, run.Catalog.Domain())

	if err := CheckRequired(rec, chainFilledFields...); err != nil {
		log.Debug().Err(err).Int("catalog_id", run.Catalog.ID).Msg("Record failed required-field check")
		return nil, false
	}

	if run.Chain != nil {
		rc := rules.Context{
			SellerID:     offer.SellerID,
			Domain:       run.Catalog.Domain(),
			Source:       p.source,
			SalesChannel: run.Catalog.SalesChannel,
		}
		if ok, by := run.Chain.Apply(ctx, rec, rc); !ok {
			metrics.RuleExclusions.WithLabelValues(by).Inc()
			log.Debug().
				Int("catalog_id", run.Catalog.ID).
				Str("product_id", rec.ID).
				Str("seller_id", offer.SellerID).
				Str("rule", by).
				Msg("Record excluded by rule")
			return nil, false
		}
	}

	if err := CheckRequired(rec); err != nil {
		log.Debug().Err(err).Int("catalog_id", run.Catalog.ID).Msg("Record failed required-field check after rules")
		return nil, false
	}
	return rec, true
}

// MapRecord converts source details and an offer into a record. Prices stay in
// minor units for the rule chain.
func MapRecord(d *vtex.SKUDetails, offer *vtex.Availability, domain string) *models.ProductRecord {
	title := CleanText(d.Name())
	description := CleanText(d.Description())
	if description == "" {
		description = title
	}

	rec := &models.ProductRecord{
		ID:           strconv.Itoa(d.ID),
		Title:        title,
		Description:  description,
		Availability: models.AvailabilityOutOfStock,
		Status:       models.StatusActive,
		Condition:    models.ConditionNew,
		Link:         productLink(d.DetailURL, domain),
		Brand:        strings.TrimSpace(d.BrandName),
	}
	if offer.Available {
		rec.Availability = models.AvailabilityInStock
	}
	if offer.Price > 0 {
		if offer.ListPrice > offer.Price {
			rec.Price = strconv.FormatInt(offer.ListPrice, 10)
			rec.SalePrice = strconv.FormatInt(offer.Price, 10)
		} else {
			rec.Price = strconv.FormatInt(offer.Price, 10)
		}
	}

	images := make([]string, 0, len(d.Images))
	for _, img := range d.Images {
		if img.ImageURL != "" {
			images = append(images, img.ImageURL)
		}
	}
	if len(images) > 0 {
		rec.ImageLink = images[0]
	}

	categories := categoryNames(d.ProductCategories)
	rec.Detail = models.Detail{
		models.DetailSKUID:           strconv.Itoa(d.ID),
		models.DetailProductID:       strconv.Itoa(d.ProductID),
		models.DetailSellerID:        offer.SellerID,
		models.DetailName:            d.Name(),
		models.DetailCategories:      categories,
		models.DetailCategoryPath:    "/" + strings.Join(categories, "/") + "/",
		models.DetailImages:          images,
		models.DetailMeasurementUnit: d.MeasurementUnit,
		models.DetailUnitMultiplier:  d.UnitMultiplier,
		models.DetailWeightKg:        d.Dimension.Weight / 1000,
		models.DetailListPrice:       offer.ListPrice,
		models.DetailPriceBreakdown:  offer.Raw,
	}
	if d.ProductDescription != nil {
		rec.Detail[models.DetailDescriptionLong] = *d.ProductDescription
	}
	return rec
}

// categoryNames orders category names by their numeric id, root first.
func categoryNames(cats map[string]string) []string {
	ids := make([]string, 0, len(cats))
	for id := range cats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, cats[id])
	}
	return names
}

func productLink(detailURL, domain string) string {
	switch {
	case detailURL == "":
		return ""
	case strings.HasPrefix(detailURL, "http://"), strings.HasPrefix(detailURL, "https://"):
		return detailURL
	case domain == "":
		return detailURL
	default:
		return "https://" + domain + "/" + strings.TrimPrefix(detailURL, "/")
	}
}

