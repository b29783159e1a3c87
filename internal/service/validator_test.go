package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/catalog_sync/internal/cache"
	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
	"github.com/GTDGit/catalog_sync/pkg/classifier"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

func strPtr(s string) *string { return &s }

func testCatalog() *models.Catalog {
	return &models.Catalog{
		ID:           1,
		ExternalID:   "cat-ext-1",
		AppID:        "app-1",
		SourceDomain: strPtr("shop.example.com"),
		SalesChannel: "1",
		SyncMode:     models.SyncModeSingle,
		IsActive:     true,
	}
}

func sku(id int, name string, active bool) *vtex.SKUDetails {
	return &vtex.SKUDetails{
		ID:                 id,
		ProductID:          id * 10,
		NameComplete:       name,
		ProductDescription: strPtr("Descripción de " + name),
		IsActive:           active,
		BrandName:          "Marca",
		DetailURL:          "/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "/p",
		Images:             []vtex.Image{{ImageURL: "https://img/" + name + ".jpg"}},
	}
}

type validatorFixture struct {
	source   *fakeSource
	cls      *fakeClassifier
	verdicts *fakeVerdicts
	v        *SKUValidator
}

func newValidatorFixture() *validatorFixture {
	f := &validatorFixture{
		source:   newFakeSource(),
		cls:      &fakeClassifier{def: classifier.Result{Classification: "grocery", Other: true}},
		verdicts: newFakeVerdicts(),
	}
	f.v = NewSKUValidator(f.source, f.cls, cache.NewMemoryVerdictCache(time.Hour), f.verdicts, ValidatorOptions{})
	return f
}

func TestValidateRejectsBlankID(t *testing.T) {
	f := newValidatorFixture()
	_, err := f.v.Validate(t.Context(), "   ", testCatalog())
	assert.ErrorIs(t, err, utils.ErrInvalidSKU)
	assert.Zero(t, f.cls.calls)
}

func TestValidateCachesPositiveVerdict(t *testing.T) {
	f := newValidatorFixture()
	f.source.addSKU(sku(1, "Yerba Mate", true))
	cat := testCatalog()

	d, err := f.v.Validate(t.Context(), "1", cat)
	require.NoError(t, err)
	require.NotNil(t, d)

	d, err = f.v.Validate(t.Context(), "1", cat)
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, 1, f.cls.calls)
	assert.Equal(t, 2, f.source.calls("1"), "a cache hit still fetches fresh details")
	assert.Empty(t, f.verdicts.items, "positive verdicts are not persisted")
}

func TestValidateNegativeVerdictIsPermanent(t *testing.T) {
	f := newValidatorFixture()
	f.source.addSKU(sku(2, "Cigarrillos", true))
	f.cls.def = classifier.Result{Classification: "tobacco", Other: false}
	cat := testCatalog()

	d, err := f.v.Validate(t.Context(), "2", cat)
	require.NoError(t, err)
	assert.Nil(t, d)

	stored := f.verdicts.items["1:2"]
	assert.False(t, stored.IsValid)
	assert.Equal(t, "tobacco", stored.Classification)
	assert.Contains(t, stored.Description, "Cigarrillos")

	for i := 0; i < 3; i++ {
		d, err = f.v.Validate(t.Context(), "2", cat)
		require.NoError(t, err)
		assert.Nil(t, d)
	}
	assert.Equal(t, 1, f.cls.calls)
	assert.Equal(t, 1, f.source.calls("2"))
}

func TestValidateStoredPositiveVerdict(t *testing.T) {
	f := newValidatorFixture()
	f.source.addSKU(sku(3, "Galletitas", true))
	require.NoError(t, f.verdicts.Create(t.Context(), &models.ValidationVerdict{CatalogID: 1, SKUID: "3", IsValid: true}))

	d, err := f.v.Validate(t.Context(), "3", testCatalog())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Zero(t, f.cls.calls)

	_, err = f.v.Validate(t.Context(), "3", testCatalog())
	require.NoError(t, err)
	assert.Equal(t, 1, f.verdicts.gets, "second lookup is served by the cache")
}

func TestValidateInactiveBypassesClassifier(t *testing.T) {
	f := newValidatorFixture()
	f.source.addSKU(sku(4, "Discontinuado", false))

	d, err := f.v.Validate(t.Context(), "4", testCatalog())
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.False(t, d.IsActive)
	assert.Zero(t, f.cls.calls)
}

func TestValidateFailOpenIsNotCached(t *testing.T) {
	f := newValidatorFixture()
	f.source.addSKU(sku(5, "Queso", true))
	f.cls.err = errBoom

	d, err := f.v.Validate(t.Context(), "5", testCatalog())
	require.NoError(t, err)
	require.NotNil(t, d, "classifier outage must not block the SKU")

	_, err = f.v.Validate(t.Context(), "5", testCatalog())
	require.NoError(t, err)
	assert.Equal(t, 2, f.cls.calls)
	assert.Empty(t, f.verdicts.items)
}

func TestValidateTruncatesClassifierInput(t *testing.T) {
	f := newValidatorFixture()
	f.v.inputLimit = 20
	d := sku(6, "Nombre", true)
	d.ProductDescription = strPtr(strings.Repeat("ñ", 100))
	f.source.addSKU(d)

	_, err := f.v.Validate(t.Context(), "6", testCatalog())
	require.NoError(t, err)
	require.Len(t, f.cls.inputs, 1)
	assert.Equal(t, 20, len([]rune(f.cls.inputs[0])))
}

func TestValidateDetailsError(t *testing.T) {
	f := newValidatorFixture()
	_, err := f.v.Validate(t.Context(), "404", testCatalog())
	assert.Error(t, err)
}
