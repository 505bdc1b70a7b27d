package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient talks JSON to the signing provider's REST API. The *http.Client
// is injected so cmd/server can hand in an oauth2 client-credentials
// transport; token refresh then happens transparently.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a provider client. timeout bounds each call
// end-to-end on top of whatever deadline the caller's context carries.
func NewHTTPClient(httpClient *http.Client, baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
	}
}

// CreateSignatureRequest issues POST /signature_request/send.
func (c *HTTPClient) CreateSignatureRequest(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signature_request/send", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create signature request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("provider returned HTTP %d creating signature request", resp.StatusCode)
	}

	var out CreateResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if out.RequestID == "" {
		return nil, fmt.Errorf("provider response missing signature_request_id")
	}
	return &out, nil
}

// CancelSignatureRequest issues POST /signature_request/cancel/{id}.
// A 404 means the provider already forgot the request; treated as success.
func (c *HTTPClient) CancelSignatureRequest(ctx context.Context, requestID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/signature_request/cancel/" + url.PathEscape(requestID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("build cancel request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cancel signature request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return fmt.Errorf("provider returned HTTP %d cancelling %s", resp.StatusCode, requestID)
}
