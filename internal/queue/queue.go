// Package queue holds the work queues drained by the batch orchestrator.
//
// Items are opaque tokens: a bare SKU id in single mode or "seller_id#sku_id"
// in seller_sku mode.
package queue

import (
	"context"
	"strings"
)

// Queue is a FIFO of work items.
type Queue interface {
	Put(ctx context.Context, item string) error
	PutMany(ctx context.Context, items []string) error
	// Get pops the next item. ok is false when the queue is empty.
	Get(ctx context.Context) (item string, ok bool, err error)
	Size(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Staging records items claimed by in-flight workers.
type Staging interface {
	Queue
	GetAll(ctx context.Context) ([]string, error)
}

// SellerSKUSeparator joins seller and SKU ids in seller_sku items.
const SellerSKUSeparator = "#"

// SellerSKU builds a seller_sku queue item.
func SellerSKU(sellerID, skuID string) string {
	return sellerID + SellerSKUSeparator + skuID
}

// SplitSellerSKU parses a seller_sku queue item.
func SplitSellerSKU(item string) (sellerID, skuID string, ok bool) {
	sellerID, skuID, ok = strings.Cut(item, SellerSKUSeparator)
	if !ok || sellerID == "" || skuID == "" {
		return "", "", false
	}
	return sellerID, skuID, true
}
