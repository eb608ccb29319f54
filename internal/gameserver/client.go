// Package gameserver downloads match logs from the game server stats API.
package gameserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public stats API of the S2 game server.
const DefaultBaseURL = "http://78.47.147.210:9000"

// Client is a minimal client for the game server stats API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient returns a client for baseURL sending at most rps requests per
// second. rps <= 0 disables the limit.
func NewClient(baseURL string, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// get performs a GET request and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return body, nil
}

// StartTimes lists the start time in epoch millis of every stored match.
func (c *Client) StartTimes(ctx context.Context) ([]int64, error) {
	body, err := c.get(ctx, "/api/v1/game/start_times")
	if err != nil {
		return nil, err
	}
	var out []int64
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode start times: %w", err)
	}
	return out, nil
}

// Game returns the raw JSON of one match, events included.
func (c *Client) Game(ctx context.Context, startTime int64) ([]byte, error) {
	return c.get(ctx, fmt.Sprintf("/api/v1/game/%d?withEvents=true", startTime))
}
