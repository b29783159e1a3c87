// Package rules turns a mapped product into a destination-ready record.
//
// A Rule mutates the record in place and returns false to exclude it. Rules
// run in the configured order and the chain stops at the first exclusion.
package rules

import (
	"context"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/pkg/vtex"
)

// SpecSource looks up product specifications in the source system.
type SpecSource interface {
	GetProductSpecification(ctx context.Context, productID, domain string) ([]vtex.Specification, error)
}

// Context carries per-item values rules may read.
type Context struct {
	SellerID     string
	Domain       string
	Source       SpecSource
	SalesChannel string
}

// Rule is one step of the chain.
type Rule interface {
	Apply(ctx context.Context, rec *models.ProductRecord, rc Context) bool
}

// Func adapts a function to Rule.
type Func func(ctx context.Context, rec *models.ProductRecord, rc Context) bool

// Apply calls f.
func (f Func) Apply(ctx context.Context, rec *models.ProductRecord, rc Context) bool {
	return f(ctx, rec, rc)
}

type step struct {
	name string
	rule Rule
}

// Chain is an ordered list of named rules.
type Chain struct {
	steps []step
}

// NewChain creates an empty Chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends rule under name and returns the chain.
func (c *Chain) Add(name string, rule Rule) *Chain {
	c.steps = append(c.steps, step{name: name, rule: rule})
	return c
}

// Len returns the number of rules.
func (c *Chain) Len() int { return len(c.steps) }

// Names returns the rule names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.steps))
	for i, s := range c.steps {
		names[i] = s.name
	}
	return names
}

// Apply runs every rule in order. When a rule excludes the record it returns
// false and the name of that rule; later rules are not invoked.
func (c *Chain) Apply(ctx context.Context, rec *models.ProductRecord, rc Context) (bool, string) {
	for _, s := range c.steps {
		if !s.rule.Apply(ctx, rec, rc) {
			return false, s.name
		}
	}
	return true, ""
}
