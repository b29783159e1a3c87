package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/catalog_sync/pkg/apierr"
	"github.com/GTDGit/catalog_sync/pkg/ratelimit"
)

const (
	// DefaultBaseURL targets Groq's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	serviceName = "classifier"
	limiterID   = "classifier"
)

const systemPrompt = `You are a JSON-only response bot. You MUST respond with ONLY a valid JSON object. No explanations, no markdown, no text before or after the JSON. Start your response with { and end with }.`

const policyPrompt = `Classify the following product for a commerce catalog advertising policy.
Return {"classification": "<short category>", "other": <bool>}.
"other" must be false when the product belongs to a restricted category
(adult products, tobacco, weapons, drugs or drug paraphernalia, alcohol where
prohibited, live animals, medical devices, recalled items) and true otherwise.

Product:
%s`

// Result is the classifier verdict. Other=false signals an exclusion-worthy classification.
type Result struct {
	Classification string `json:"classification"`
	Other          bool   `json:"other"`
}

// Config configures the classifier client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client validates product text against the catalog policy through an LLM.
type Client struct {
	httpClient *http.Client
	cfg        Config
	guard      *ratelimit.Guard
}

// NewClient creates a Client. guard may be nil.
func NewClient(cfg Config, guard *ratelimit.Guard) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
		guard:      guard,
	}
}

// ValidatePolicy classifies description.
func (c *Client) ValidatePolicy(ctx context.Context, description string) (*Result, error) {
	var content string
	err := c.guard.Call(ctx, limiterID, func(ctx context.Context) error {
		var err error
		content, err = c.complete(ctx, fmt.Sprintf(policyPrompt, description))
		return err
	})
	if err != nil {
		return nil, err
	}

	raw := extractJSON(content)
	if raw == "" {
		log.Debug().Str("raw_response", content).Msg("Classifier returned no JSON")
		return nil, errors.New("classifier response contained no JSON object")
	}

	var res Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	return &res, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"model": c.cfg.Model,
		"messages": []interface{}{
			map[string]string{"role": "system", "content": systemPrompt},
			map[string]string{"role": "user", "content": prompt},
		},
		"temperature": 0.1,
		"max_tokens":  200,
	}
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apierr.Transport(serviceName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apierr.Transport(serviceName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apierr.FromResponse(serviceName, resp.StatusCode, body)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", errors.New("no response from classifier")
	}
	return result.Choices[0].Message.Content, nil
}

// extractJSON returns the outermost {...} of s, tolerating markdown fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
