// Package skiptrace executes queued owner-phone lookups against an
// external provider. The HTTP surface only enqueues and reads jobs; this
// package owns claiming and running them.
package skiptrace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dealbase-inc/dealbase-engine/pkg/models"
	"github.com/dealbase-inc/dealbase-engine/pkg/retry"
)

// LookupResult is the provider's answer for one address.
type LookupResult struct {
	Phone string
	Found bool
}

// Provider performs one owner-phone lookup.
type Provider interface {
	Lookup(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error)
}

// Client calls the skip-trace provider's REST API with exponential
// backoff on transient failures.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retryCfg   *retry.Config
}

// NewClient creates a provider client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryCfg:   retry.DefaultConfig(),
	}
}

var _ Provider = (*Client)(nil)

type lookupRequest struct {
	AddressLine1 string `json:"address_line1"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
}

type lookupResponse struct {
	Found bool   `json:"found"`
	Phone string `json:"phone"`
}

// Lookup posts the address to the provider and returns the discovered
// phone, if any. Transient provider failures are retried; a clean
// "no phone on file" answer is a success.
func (c *Client) Lookup(ctx context.Context, job *models.SkipTraceJob) (*LookupResult, error) {
	payload, err := json.Marshal(lookupRequest{
		AddressLine1: job.AddressLine1,
		City:         job.City,
		State:        job.State,
		PostalCode:   job.PostalCode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	return retry.DoWithResult(ctx, c.retryCfg, func() (*LookupResult, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/skip-trace", bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build lookup request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("lookup request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read lookup response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("provider returned HTTP %d", resp.StatusCode)
		}

		var decoded lookupResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("failed to decode lookup response: %w", err)
		}
		return &LookupResult{Phone: decoded.Phone, Found: decoded.Found}, nil
	})
}
