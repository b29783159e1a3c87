package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/GTDGit/catalog_sync/internal/utils"
)

// Webhook posts alerts as signed JSON.
type Webhook struct {
	url        string
	secret     string
	httpClient *http.Client
}

// NewWebhook creates a Webhook notifier.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Event     string         `json:"event"`
	Subject   string         `json:"subject"`
	Fields    map[string]any `json:"fields"`
	Timestamp string         `json:"timestamp"`
}

func (w *Webhook) Notify(ctx context.Context, subject string, fields map[string]any) error {
	now := time.Now().UTC()
	body, err := json.Marshal(webhookPayload{
		Event:     "catalog.alert",
		Subject:   subject,
		Fields:    fields,
		Timestamp: now.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Catalog-Event", "catalog.alert")
	req.Header.Set(utils.TimestampHeader, strconv.FormatInt(now.Unix(), 10))
	req.Header.Set(utils.SignatureHeader, utils.SignPayload(w.secret, now, body))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
