package rules

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// Factory builds a rule from its configured parameters.
type Factory func(params map[string]any) (Rule, error)

// Registry resolves rule names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with every built-in rule registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("weight_price", newWeightPrice)
	r.Register("currency", newCurrency)
	r.Register("currency_ars", preset(CurrencyConfig{Code: "ARS", Rounding: RoundFloor}))
	r.Register("currency_clp", preset(CurrencyConfig{Code: "CLP", Rounding: RoundCeil}))
	r.Register("currency_brl", preset(CurrencyConfig{Code: "BRL", Decimals: 2}))
	r.Register("currency_pen_990", preset(CurrencyConfig{Code: "PEN", Rounding: RoundFloor, Tail: ".990"}))
	r.Register("exclude_categories", newExcludeCategories)
	r.Register("exclude_brands", newExcludeBrands)
	r.Register("id_seller", static(IDSeller))
	r.Register("id_sales_channel", static(IDSalesChannel))
	r.Register("gallery", newGallery)
	r.Register("rich_description", static(RichDescription))
	r.Register("archive_out_of_stock", static(ArchiveOutOfStock))
	r.Register("brand_from_specification", newBrandFromSpecification)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Names lists registered rule names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build resolves specs into a Chain, preserving order.
func (r *Registry) Build(specs []models.RuleSpec) (*Chain, error) {
	chain := NewChain()
	for i, spec := range specs {
		f, ok := r.factories[spec.Name]
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown rule %q", i, spec.Name)
		}
		rule, err := f(spec.Params)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Name, err)
		}
		chain.Add(spec.Name, rule)
	}
	return chain, nil
}

// BuildNames resolves parameterless rule names.
func (r *Registry) BuildNames(names []string) (*Chain, error) {
	specs := make([]models.RuleSpec, len(names))
	for i, n := range names {
		specs[i] = models.RuleSpec{Name: n}
	}
	return r.Build(specs)
}

func static(rule Func) Factory {
	return func(map[string]any) (Rule, error) { return rule, nil }
}

func preset(cfg CurrencyConfig) Factory {
	return func(map[string]any) (Rule, error) { return NewCurrency(cfg) }
}

func paramString(params map[string]any, key, def string) string {
	if s, ok := params[key].(string); ok && s != "" {
		return s
	}
	return def
}

func paramStrings(params map[string]any, key string) []string {
	switch v := params[key].(type) {
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

func paramInt(params map[string]any, key string, def int) (int, error) {
	switch v := params[key].(type) {
	case nil:
		return def, nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("param %s: unsupported type %T", key, v)
	}
}
