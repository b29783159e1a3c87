package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/cache"
	"github.com/GTDGit/catalog_sync/internal/metrics"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

// DefaultClassifierInputLimit bounds the text sent to the classifier, in runes.
const DefaultClassifierInputLimit = 1000

// SKUValidator gates SKUs on activity and catalog policy.
//
// Lookup order is the ephemeral cache, then the durable verdict store, then a
// fresh classification. Negative verdicts are durable and final; positive
// verdicts live only in the cache.
type SKUValidator struct {
	source         Source
	classifier     PolicyClassifier
	cache          cache.VerdictCache
	verdicts       VerdictStore
	inputLimit     int
	skipClassifier bool
}

// ValidatorOptions tunes an SKUValidator.
type ValidatorOptions struct {
	InputLimit     int
	SkipClassifier bool
}

// NewSKUValidator constructs an SKUValidator.
func NewSKUValidator(source Source, cls PolicyClassifier, c cache.VerdictCache, verdicts VerdictStore, opts ValidatorOptions) *SKUValidator {
	if opts.InputLimit <= 0 {
		opts.InputLimit = DefaultClassifierInputLimit
	}
	return &SKUValidator{
		source:         source,
		classifier:     cls,
		cache:          c,
		verdicts:       verdicts,
		inputLimit:     opts.InputLimit,
		skipClassifier: opts.SkipClassifier,
	}
}

// Validate returns fresh details for a valid SKU, or nil when the SKU is
// excluded by policy.
func (v *SKUValidator) Validate(ctx context.Context, skuID string, catalog *models.Catalog) (*vtex.SKUDetails, error) {
	skuID = strings.TrimSpace(skuID)
	if skuID == "" {
		return nil, utils.ErrInvalidSKU
	}
	domain := catalog.Domain()

	entry, found, err := v.cache.Get(ctx, catalog.ID, skuID)
	if err != nil {
		log.Warn().Err(err).Int("catalog_id", catalog.ID).Str("sku_id", skuID).Msg("Verdict cache read failed")
	}
	if found {
		if !entry.Valid {
			return nil, nil
		}
		return v.source.GetProductDetails(ctx, skuID, domain)
	}

	verdict, err := v.verdicts.Get(ctx, catalog.ID, skuID)
	if err != nil {
		return nil, fmt.Errorf("failed to read verdict: %w", err)
	}
	if verdict != nil {
		if !verdict.IsValid {
			return nil, nil
		}
		v.remember(ctx, catalog.ID, skuID, verdict.Classification)
		return v.source.GetProductDetails(ctx, skuID, domain)
	}

	details, err := v.source.GetProductDetails(ctx, skuID, domain)
	if err != nil {
		return nil, err
	}
	if !details.IsActive {
		return details, nil
	}
	if v.skipClassifier || v.classifier == nil {
		v.remember(ctx, catalog.ID, skuID, "")
		return details, nil
	}

	input := truncateRunes(CleanText(details.Name()+"\n"+details.Description()), v.inputLimit)
	res, err := v.classifier.ValidatePolicy(ctx, input)
	if err != nil {
		metrics.ClassifierCalls.WithLabelValues(metrics.ResultFailOpen).Inc()
		log.Warn().Err(err).Int("catalog_id", catalog.ID).Str("sku_id", skuID).Msg("Classifier unavailable, treating SKU as valid")
		return details, nil
	}

	if !res.Other {
		metrics.ClassifierCalls.WithLabelValues(metrics.ResultInvalid).Inc()
		err := v.verdicts.Create(ctx, &models.ValidationVerdict{
			CatalogID:      catalog.ID,
			SKUID:          skuID,
			IsValid:        false,
			Classification: res.Classification,
			Description:    input,
		})
		if err != nil {
			log.Error().Err(err).Int("catalog_id", catalog.ID).Str("sku_id", skuID).Msg("Failed to persist negative verdict")
		}
		log.Info().
			Int("catalog_id", catalog.ID).
			Str("sku_id", skuID).
			Str("classification", res.Classification).
			Msg("SKU excluded by policy")
		return nil, nil
	}

	metrics.ClassifierCalls.WithLabelValues(metrics.ResultValid).Inc()
	v.remember(ctx, catalog.ID, skuID, res.Classification)
	return details, nil
}

func (v *SKUValidator) remember(ctx context.Context, catalogID int, skuID, classification string) {
	if err := v.cache.Set(ctx, catalogID, skuID, cache.VerdictEntry{Valid: true, Classification: classification}); err != nil {
		log.Warn().Err(err).Int("catalog_id", catalogID).Str("sku_id", skuID).Msg("Verdict cache write failed")
	}
}
