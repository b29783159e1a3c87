package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// ExcludeCategories drops products in any denied category. Matching is
// case-insensitive on whole category names taken from Detail categories and
// the segments of Detail category_path.
type ExcludeCategories struct {
	deny map[string]struct{}
}

func newExcludeCategories(params map[string]any) (Rule, error) {
	cats := paramStrings(params, "categories")
	if len(cats) == 0 {
		return nil, fmt.Errorf("categories param is required")
	}
	return NewExcludeCategories(cats...), nil
}

// NewExcludeCategories builds the rule.
func NewExcludeCategories(categories ...string) *ExcludeCategories {
	return &ExcludeCategories{deny: denySet(categories)}
}

func (r *ExcludeCategories) Apply(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	for _, c := range productCategories(rec) {
		if _, ok := r.deny[strings.ToLower(strings.TrimSpace(c))]; ok {
			return false
		}
	}
	return true
}

// ExcludeBrands drops products whose brand is denied, case-insensitively.
type ExcludeBrands struct {
	deny map[string]struct{}
}

func newExcludeBrands(params map[string]any) (Rule, error) {
	brands := paramStrings(params, "brands")
	if len(brands) == 0 {
		return nil, fmt.Errorf("brands param is required")
	}
	return &ExcludeBrands{deny: denySet(brands)}, nil
}

func (r *ExcludeBrands) Apply(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	_, denied := r.deny[strings.ToLower(strings.TrimSpace(rec.Brand))]
	return !denied
}

func denySet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func productCategories(rec *models.ProductRecord) []string {
	cats := rec.Detail.Strings(models.DetailCategories)
	if path, ok := rec.Detail.String(models.DetailCategoryPath); ok {
		for _, seg := range strings.Split(path, "/") {
			if seg != "" {
				cats = append(cats, seg)
			}
		}
	}
	return cats
}
