package metacatalog

import "encoding/json"

const (
	// ItemTypeProduct is the only item type the pipeline uploads.
	ItemTypeProduct = "PRODUCT_ITEM"
	// MethodUpdate creates or overwrites an item by its id.
	MethodUpdate = "UPDATE"
)

// BatchRequest is the body of an items_batch call.
type BatchRequest struct {
	ItemType string      `json:"item_type"`
	Requests []BatchItem `json:"requests"`
}

// BatchItem is one operation of a batch. Data is the serialized product.
type BatchItem struct {
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
}

// BatchResponse carries the handles used to poll batch status later.
type BatchResponse struct {
	Handles          []string `json:"handles"`
	ValidationStatus []struct {
		RetailerID string `json:"retailer_id"`
		Errors     []struct {
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"validation_status,omitempty"`
}

// NewUpdateBatch builds a PRODUCT_ITEM batch with one UPDATE per payload.
func NewUpdateBatch(payloads []json.RawMessage) BatchRequest {
	req := BatchRequest{ItemType: ItemTypeProduct, Requests: make([]BatchItem, 0, len(payloads))}
	for _, p := range payloads {
		req.Requests = append(req.Requests, BatchItem{Method: MethodUpdate, Data: p})
	}
	return req
}
