// Package peer is the outbound HTTP client one authority uses to call another
// authority's endpoints (spec.md §5 "bounded 5s timeout", §6 endpoint table).
// Post sends a signed envelope and PostJSON a plain JSON body; both decode the
// reply as the signed envelope wire format used at the public HTTP boundary.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
)

// DefaultTimeout bounds every outbound authority-to-authority call
// (spec.md §5 "5s reference").
const DefaultTimeout = 5 * time.Second

// Client posts signed envelopes to other authorities over HTTPS.
type Client struct {
	http *http.Client
}

// New constructs a Client with a bounded per-call timeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Post sends env as the JSON body of a POST to node's path and decodes the
// reply as another envelope.
func (c *Client) Post(ctx context.Context, node config.AuthorityNode, path string, env *envelope.Envelope) (*envelope.Envelope, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal outbound envelope: %w", err)
	}

	url := fmt.Sprintf("https://%s:%d%s", node.Hostname, node.Port, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request to %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: %s", config.ErrChainView, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s replied HTTP %d", config.ErrConsensus, url, resp.StatusCode)
	}

	var reply envelope.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode reply from %s: %w", url, err)
	}
	return &reply, nil
}

// PostJSON sends an unsigned JSON request body (used by the payout
// coordinator for /computePendingPayouts and /computeUnspent, which carry no
// envelope) and decodes the reply as an envelope.
func (c *Client) PostJSON(ctx context.Context, node config.AuthorityNode, path string, requestBody interface{}) (*envelope.Envelope, error) {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	url := fmt.Sprintf("https://%s:%d%s", node.Hostname, node.Port, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request to %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: call %s: %s", config.ErrChainView, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s replied HTTP %d", config.ErrConsensus, url, resp.StatusCode)
	}

	var reply envelope.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("decode reply from %s: %w", url, err)
	}
	return &reply, nil
}
