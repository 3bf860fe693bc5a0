package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"bggsync/internal/config"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrorsError carries application-level validation errors returned by a
// mutation. These are non-fatal to a run: the caller logs them and moves on.
type UserErrorsError struct {
	Action string
	Errors []UserError
}

func (e *UserErrorsError) Error() string {
	if len(e.Errors) == 0 {
		return e.Action + ": user errors"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, ue := range e.Errors {
		parts = append(parts, ue.Message)
	}
	return fmt.Sprintf("%s: %s", e.Action, strings.Join(parts, "; "))
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.RateLimitRPS),
	}
}

func (c *Client) endpoint() string {
	domain := strings.TrimSuffix(strings.TrimPrefix(c.cfg.ShopDomain, "https://"), "/")
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", domain, c.cfg.APIVersion)
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if strings.TrimSpace(c.cfg.ShopDomain) == "" {
		return nil, errors.New("missing SHOPIFY_SHOP_DOMAIN")
	}
	if strings.TrimSpace(c.cfg.AccessToken) == "" {
		return nil, errors.New("missing SHOPIFY_ACCESS_TOKEN")
	}

	payload, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("shopify status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("shopify api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var gqlResp graphqlResponse
		if err := json.Unmarshal(body, &gqlResp); err != nil {
			return nil, err
		}
		if len(gqlResp.Errors) > 0 {
			msgs := make([]string, 0, len(gqlResp.Errors))
			for _, e := range gqlResp.Errors {
				msgs = append(msgs, e.Message)
			}
			return nil, fmt.Errorf("shopify graphql errors: %s", strings.Join(msgs, "; "))
		}
		return gqlResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("shopify request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
