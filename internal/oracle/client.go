// Package oracle talks to the external conversational judge: it produces
// in-game replies and, once an attempt's quota is spent, the 0-10 verdict
// that drives pot distribution.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// Turn is one completed exchange of an attempt's conversation.
type Turn struct {
	Content    string `json:"content"`
	AIResponse string `json:"aiResponse"`
}

// Response is the judge's reply to one user message.
type Response struct {
	Text string  `json:"text"`
	Cost float64 `json:"cost"`
}

// Verdict is the judge's rating of a finished conversation.
type Verdict struct {
	Score float64
	Cost  float64
	Raw   string
}

type Client interface {
	Respond(ctx context.Context, message string, history []Turn, userContext string) (*Response, error)
	Score(ctx context.Context, history []Turn) (*Verdict, error)
}

// TransientError marks a failure worth retrying: transport problems,
// timeouts, non-2xx responses.
type TransientError struct {
	cause error
}

func NewTransientError(cause error) *TransientError {
	return &TransientError{cause: cause}
}

func (e *TransientError) Error() string { return fmt.Sprintf("oracle transient error: %v", e.cause) }
func (e *TransientError) Unwrap() error { return e.cause }

// FormatError marks a verdict the client could not parse.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string { return fmt.Sprintf("unparsable verdict: %q", e.Raw) }

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) Client {
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type respondRequest struct {
	Message     string `json:"message"`
	History     []Turn `json:"history"`
	UserContext string `json:"userContext,omitempty"`
}

type scoreRequest struct {
	History []Turn `json:"history"`
}

type scoreResponse struct {
	Verdict string  `json:"verdict"`
	Cost    float64 `json:"cost"`
}

func (c *httpClient) Respond(ctx context.Context, message string, history []Turn, userContext string) (*Response, error) {
	var resp Response
	err := c.post(ctx, "/v1/respond", respondRequest{
		Message:     message,
		History:     history,
		UserContext: userContext,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) Score(ctx context.Context, history []Turn) (*Verdict, error) {
	var resp scoreResponse
	if err := c.post(ctx, "/v1/score", scoreRequest{History: history}, &resp); err != nil {
		return nil, err
	}

	score, err := ParseVerdict(resp.Verdict)
	if err != nil {
		return nil, err
	}

	return &Verdict{Score: score, Cost: resp.Cost, Raw: resp.Verdict}, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransientError{cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &TransientError{cause: fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransientError{cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// Verdicts arrive as free text in the form "Score: 7/10\nReason: ...".
var verdictPattern = regexp.MustCompile(`(?i)score:\s*([0-9]+(?:\.[0-9]+)?)\s*/\s*10`)

// ParseVerdict extracts the numeric score from a raw verdict. A verdict
// that cannot be parsed, or whose score falls outside [0, 10], yields a
// FormatError.
func ParseVerdict(raw string) (float64, error) {
	m := verdictPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, &FormatError{Raw: raw}
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil || score < 0 || score > 10 {
		return 0, &FormatError{Raw: raw}
	}
	return score, nil
}
