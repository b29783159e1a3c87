package rules

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/internal/models"
)

// Rounding modes for whole-unit currencies.
const (
	RoundNone  = "none"
	RoundFloor = "floor"
	RoundCeil  = "ceil"
)

// CurrencyConfig describes how a market prints prices.
type CurrencyConfig struct {
	Code     string
	Rounding string
	// Tail replaces the minor units with a fixed suffix, e.g. ".990".
	Tail string
	// Decimals is 0 or 2.
	Decimals int
}

// Currency formats Price and SalePrice from integer minor units (cents) into
// "<amount> <CODE>". Records with a malformed price are excluded.
type Currency struct {
	cfg CurrencyConfig
}

// NewCurrency validates cfg and builds the rule.
func NewCurrency(cfg CurrencyConfig) (*Currency, error) {
	if cfg.Code == "" {
		return nil, fmt.Errorf("currency code is required")
	}
	if cfg.Rounding == "" {
		cfg.Rounding = RoundNone
	}
	switch cfg.Rounding {
	case RoundNone, RoundFloor, RoundCeil:
	default:
		return nil, fmt.Errorf("unknown rounding %q", cfg.Rounding)
	}
	if cfg.Decimals != 0 && cfg.Decimals != 2 {
		return nil, fmt.Errorf("decimals must be 0 or 2, got %d", cfg.Decimals)
	}
	return &Currency{cfg: cfg}, nil
}

func newCurrency(params map[string]any) (Rule, error) {
	decimals, err := paramInt(params, "decimals", 0)
	if err != nil {
		return nil, err
	}
	return NewCurrency(CurrencyConfig{
		Code:     paramString(params, "code", ""),
		Rounding: paramString(params, "rounding", RoundNone),
		Tail:     paramString(params, "tail", ""),
		Decimals: decimals,
	})
}

func (c *Currency) Apply(_ context.Context, rec *models.ProductRecord, _ Context) bool {
	for _, field := range []*string{&rec.Price, &rec.SalePrice} {
		if *field == "" {
			continue
		}
		cents, err := strconv.ParseInt(*field, 10, 64)
		if err != nil {
			log.Debug().Str("product_id", rec.ID).Str("price", *field).Msg("Unparseable price, excluding")
			return false
		}
		*field = c.Format(cents)
	}
	return true
}

// Format renders cents.
func (c *Currency) Format(cents int64) string {
	units, rem := cents/100, cents%100
	switch {
	case c.cfg.Tail != "":
		return fmt.Sprintf("%d%s %s", units, c.cfg.Tail, c.cfg.Code)
	case c.cfg.Decimals == 2:
		return fmt.Sprintf("%d.%02d %s", units, rem, c.cfg.Code)
	}

	switch c.cfg.Rounding {
	case RoundCeil:
		if rem > 0 {
			units++
		}
	case RoundNone:
		if rem >= 50 {
			units++
		}
	}
	return fmt.Sprintf("%d %s", units, c.cfg.Code)
}
