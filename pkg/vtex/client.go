package vtex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/pkg/apierr"
	"github.com/GTDGit/catalog_sync/pkg/ratelimit"
)

const (
	serviceName = "vtex"

	skuPageSize    = 1000
	sellerPageSize = 100

	// maxResponseSize caps response bodies (10MB).
	maxResponseSize = 10 * 1024 * 1024
)

// Config holds the source API credentials.
type Config struct {
	AppKey   string
	AppToken string
	// Scheme is "https" in production; tests point the client at plain http servers.
	Scheme string
}

// Client talks to the source inventory system. Every account is addressed by
// its domain, so one client serves all catalogs.
type Client struct {
	httpClient *http.Client
	config     Config
	guard      *ratelimit.Guard
	debug      bool
}

// NewClient creates a Client. guard may be nil.
func NewClient(config Config, guard *ratelimit.Guard) *Client {
	if config.Scheme == "" {
		config.Scheme = "https"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     config,
		guard:      guard,
		debug:      os.Getenv("ENV") == "development",
	}
}

// ListActiveSellers returns every active seller of the account.
func (c *Client) ListActiveSellers(ctx context.Context, domain, salesChannel string) ([]Seller, error) {
	var sellers []Seller
	for from := 0; ; from += sellerPageSize {
		q := url.Values{}
		q.Set("isActive", "true")
		q.Set("from", strconv.Itoa(from))
		q.Set("to", strconv.Itoa(from+sellerPageSize))
		if salesChannel != "" {
			q.Set("sc", salesChannel)
		}

		var page sellerListResponse
		if err := c.do(ctx, domain, http.MethodGet, "/api/seller-register/pvt/sellers", q, nil, &page); err != nil {
			return nil, err
		}
		for _, s := range page.Items {
			if s.IsActive {
				sellers = append(sellers, s)
			}
		}
		if len(page.Items) < sellerPageSize || from+sellerPageSize >= page.Paging.Total {
			return sellers, nil
		}
	}
}

// ListActiveSKUIDs pages through the SKU id listing of the account.
func (c *Client) ListActiveSKUIDs(ctx context.Context, domain, salesChannel string) ([]string, error) {
	var ids []string
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("pagesize", strconv.Itoa(skuPageSize))
		if salesChannel != "" {
			q.Set("sc", salesChannel)
		}

		var batch []int
		if err := c.do(ctx, domain, http.MethodGet, "/api/catalog_system/pvt/sku/stockkeepingunitids", q, nil, &batch); err != nil {
			return nil, err
		}
		for _, id := range batch {
			ids = append(ids, strconv.Itoa(id))
		}
		if len(batch) < skuPageSize {
			return ids, nil
		}
	}
}

// GetProductDetails fetches the catalog details of a SKU.
func (c *Client) GetProductDetails(ctx context.Context, skuID, domain string) (*SKUDetails, error) {
	var details SKUDetails
	path := "/api/catalog_system/pvt/sku/stockkeepingunitbyid/" + url.PathEscape(skuID)
	if err := c.do(ctx, domain, http.MethodGet, path, nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// GetProductSpecification fetches the specification fields of a product.
func (c *Client) GetProductSpecification(ctx context.Context, productID, domain string) ([]Specification, error) {
	var specs []Specification
	path := fmt.Sprintf("/api/catalog_system/pvt/products/%s/specification", url.PathEscape(productID))
	if err := c.do(ctx, domain, http.MethodGet, path, nil, nil, &specs); err != nil {
		return nil, err
	}
	return specs, nil
}

// SimulateSingleSeller simulates the purchase of one unit of skuID from sellerID.
func (c *Client) SimulateSingleSeller(ctx context.Context, skuID, sellerID, domain, salesChannel string) (*Availability, error) {
	result, err := c.SimulateMultiSeller(ctx, skuID, []string{sellerID}, domain, salesChannel)
	if err != nil {
		return nil, err
	}
	a := result[sellerID]
	return &a, nil
}

// SimulateMultiSeller simulates skuID against every seller in one call. Sellers
// missing from the response are reported as unavailable.
func (c *Client) SimulateMultiSeller(ctx context.Context, skuID string, sellers []string, domain, salesChannel string) (map[string]Availability, error) {
	req := simulationRequest{Items: make([]SimulationItem, 0, len(sellers))}
	for _, s := range sellers {
		req.Items = append(req.Items, SimulationItem{ID: skuID, Quantity: 1, Seller: s})
	}

	q := url.Values{}
	if salesChannel != "" {
		q.Set("sc", salesChannel)
	}

	var resp simulationResponse
	if err := c.do(ctx, domain, http.MethodPost, "/api/checkout/pub/orderForms/simulation", q, req, &resp); err != nil {
		return nil, err
	}

	result := make(map[string]Availability, len(sellers))
	for _, s := range sellers {
		result[s] = Availability{SKUID: skuID, SellerID: s}
	}
	for _, item := range resp.Items {
		if item.ID != skuID {
			continue
		}
		raw, _ := json.Marshal(item)
		price := item.SellingPrice
		if price == 0 {
			price = item.Price
		}
		result[item.Seller] = Availability{
			SKUID:     skuID,
			SellerID:  item.Seller,
			Available: item.Availability == "available",
			Price:     price,
			ListPrice: item.ListPrice,
			Raw:       raw,
		}
	}
	return result, nil
}

// do performs one request under the guard (limiter + retrier) keyed by domain.
func (c *Client) do(ctx context.Context, domain, method, path string, query url.Values, body, result any) error {
	u := url.URL{Scheme: c.config.Scheme, Host: domain, Path: path}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	return c.guard.Call(ctx, serviceName+":"+domain, func(ctx context.Context) error {
		return c.doRequest(ctx, method, u.String(), payload, result)
	})
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload []byte, result any) error {
	if c.debug {
		log.Debug().
			Str("method", method).
			Str("endpoint", endpoint).
			Msg("[VTEX] Outgoing request")
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VTEX-API-AppKey", c.config.AppKey)
	req.Header.Set("X-VTEX-API-AppToken", c.config.AppToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apierr.Transport(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apierr.Transport(serviceName, fmt.Errorf("failed to read response: %w", err))
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(respBody)).
			Msg("[VTEX] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.FromResponse(serviceName, resp.StatusCode, respBody)
	}
	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
