// Package settlement checks payment references against the external
// chain-settlement service. The service owns the money movement; this
// client only reads back the confirmed amount and status.
package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/stakepot/arena-server-go/internal/money"
)

// Result is the settlement service's view of one transaction.
type Result struct {
	Confirmed bool         `json:"confirmed"`
	Amount    money.Amount `json:"amount"`
}

type Client interface {
	CheckTransaction(ctx context.Context, reference, externalTxID string) (*Result, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) CheckTransaction(ctx context.Context, reference, externalTxID string) (*Result, error) {
	endpoint := fmt.Sprintf("%s/v1/transactions/%s?reference=%s",
		c.baseURL, url.PathEscape(externalTxID), url.QueryEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("settlement request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("settlement returned %d: %s", resp.StatusCode, raw)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode settlement response: %w", err)
	}
	return &result, nil
}
