// Package attest delegates identity-proof verification to the external
// attestation service. The proof's cryptography is never re-checked here;
// the returned nullifier is the stable per-user key the rest of the
// system trusts.
package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result of verifying one proof bundle.
type Result struct {
	Valid     bool   `json:"valid"`
	Nullifier string `json:"nullifier"`
}

type Verifier interface {
	Verify(ctx context.Context, proof json.RawMessage) (*Result, error)
}

type httpVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string, timeout time.Duration) Verifier {
	return &httpVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (v *httpVerifier) Verify(ctx context.Context, proof json.RawMessage) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/verify", bytes.NewReader(proof))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attestation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("attestation returned %d: %s", resp.StatusCode, raw)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode attestation response: %w", err)
	}
	return &result, nil
}
