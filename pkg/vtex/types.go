package vtex

import "encoding/json"

// Seller is an entry of the seller register.
type Seller struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

type sellerListResponse struct {
	Items  []Seller `json:"items"`
	Paging struct {
		From  int `json:"from"`
		To    int `json:"to"`
		Total int `json:"total"`
	} `json:"paging"`
}

// Image is a SKU image.
type Image struct {
	ImageURL  string `json:"ImageUrl"`
	ImageName string `json:"ImageName"`
}

// Dimension holds the catalog (cubic) weight in grams.
type Dimension struct {
	Weight float64 `json:"weight"`
	Height float64 `json:"height"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
}

// SKUSeller links a SKU to one of the sellers that offers it.
type SKUSeller struct {
	SellerID string `json:"SellerId"`
	IsActive bool   `json:"IsActive"`
}

// SKUDetails is the catalog view of a SKU (stockkeepingunitbyid).
type SKUDetails struct {
	ID                 int               `json:"Id"`
	ProductID          int               `json:"ProductId"`
	NameComplete       string            `json:"NameComplete"`
	ProductName        string            `json:"ProductName"`
	SkuName            string            `json:"SkuName"`
	ProductDescription *string           `json:"ProductDescription"`
	IsActive           bool              `json:"IsActive"`
	BrandName          string            `json:"BrandName"`
	DetailURL          string            `json:"DetailUrl"`
	Images             []Image           `json:"Images"`
	ProductCategories  map[string]string `json:"ProductCategories"`
	MeasurementUnit    string            `json:"MeasurementUnit"`
	UnitMultiplier     float64           `json:"UnitMultiplier"`
	Dimension          Dimension         `json:"Dimension"`
	SkuSellers         []SKUSeller       `json:"SkuSellers"`
	AlternateIDs       map[string]string `json:"AlternateIds"`
}

// Name returns the most descriptive name available.
func (d *SKUDetails) Name() string {
	if d.NameComplete != "" {
		return d.NameComplete
	}
	if d.ProductName != "" {
		return d.ProductName
	}
	return d.SkuName
}

// Description returns the product description or an empty string.
func (d *SKUDetails) Description() string {
	if d.ProductDescription == nil {
		return ""
	}
	return *d.ProductDescription
}

// SimulationItem is one line of a fulfillment simulation request.
type SimulationItem struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Seller   string `json:"seller"`
}

type simulationRequest struct {
	Items []SimulationItem `json:"items"`
}

type simulationResponse struct {
	Items []simulatedItem `json:"items"`
}

type simulatedItem struct {
	ID           string          `json:"id"`
	Seller       string          `json:"seller"`
	Price        int64           `json:"price"`
	ListPrice    int64           `json:"listPrice"`
	SellingPrice int64           `json:"sellingPrice"`
	Availability string          `json:"availability"`
	PriceTags    json.RawMessage `json:"priceTags,omitempty"`
}

// Availability is the simulated offer of one SKU by one seller. Prices are in
// minor units (cents).
type Availability struct {
	SKUID     string
	SellerID  string
	Available bool
	Price     int64
	ListPrice int64
	Raw       json.RawMessage
}

// Specification is a product specification field.
type Specification struct {
	ID    int      `json:"Id"`
	Name  string   `json:"Name"`
	Value []string `json:"Value"`
}
