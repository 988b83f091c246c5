// Package identity provides a client for the identity-lookup service that
// maps phone-like identifiers to on-chain addresses.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/paystream-hq/payflow/pkg/logger"
)

// Client represents an identity-lookup API client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// lookupResponse is the wire shape of a successful lookup.
type lookupResponse struct {
	Address string `json:"address"`
}

// New creates a new identity-lookup client.
func New(endpoint string, log logger.Logger) *Client {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: createHTTPClient(),
		logger:     log,
	}
}

// Resolve looks up the on-chain address registered for a phone-like
// identifier. The second return value is false when no mapping exists;
// that is not an error at this layer.
func (c *Client) Resolve(ctx context.Context, identifier string) (common.Address, bool, error) {
	reqURL := c.endpoint + "/v1/identities/resolve?identifier=" + url.QueryEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to build lookup request: %v", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to call identity lookup: %v", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.ErrorWithComponent(logger.Resolve, "Failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return common.Address{}, false, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return common.Address{}, false, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var lookup lookupResponse
	if err := json.Unmarshal(bodyBytes, &lookup); err != nil {
		return common.Address{}, false, fmt.Errorf("failed to decode lookup response: %v, body: %s", err, string(bodyBytes))
	}

	if !common.IsHexAddress(lookup.Address) {
		return common.Address{}, false, fmt.Errorf("identity lookup returned invalid address: %s", lookup.Address)
	}

	return common.HexToAddress(lookup.Address), true, nil
}

// Helper function to create an HTTP client with timeouts.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
