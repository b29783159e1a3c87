package metacatalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/pkg/apierr"
	"github.com/GTDGit/catalog_sync/pkg/ratelimit"
)

const (
	// DefaultBaseURL is the Graph API root used for catalog batches.
	DefaultBaseURL = "https://graph.facebook.com/v19.0"

	serviceName = "metacatalog"
)

// Client submits product batches to the destination commerce catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	guard      *ratelimit.Guard
	debug      bool
}

// NewClient creates a Client. An empty baseURL selects DefaultBaseURL; guard may be nil.
func NewClient(baseURL string, guard *ratelimit.Guard) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		guard:      guard,
		debug:      os.Getenv("ENV") == "development",
	}
}

// BatchUpload posts req to the items_batch edge of catalogID.
func (c *Client) BatchUpload(ctx context.Context, catalogID, accessToken string, req BatchRequest) (*BatchResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/items_batch", c.baseURL, catalogID)
	var resp BatchResponse
	err = c.guard.Call(ctx, serviceName+":"+catalogID, func(ctx context.Context) error {
		return c.doRequest(ctx, endpoint, accessToken, payload, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doRequest(ctx context.Context, endpoint, accessToken string, payload []byte, result any) error {
	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("bytes", len(payload)).
			Msg("[METACATALOG] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apierr.Transport(serviceName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Transport(serviceName, fmt.Errorf("failed to read response: %w", err))
	}

	if c.debug {
		log.Debug().
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode).
			RawJSON("response", respBody).
			Msg("[METACATALOG] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apierr.FromResponse(serviceName, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
