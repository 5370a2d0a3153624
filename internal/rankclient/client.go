// Package rankclient is the game-client side of the ranking wire protocol:
// a thin HTTP client plus a TTL cache that keeps the leaderboard a best-effort
// decoration rather than a blocking dependency.
package rankclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"shoulderbird/server/internal/rank"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type SubmitResponse struct {
	MadeLeaderboard bool         `json:"madeLeaderboard"`
	Percentile      int          `json:"percentile"`
	Rank            *int         `json:"rank"`
	Leaderboard     []rank.Entry `json:"leaderboard"`
}

type StatsResponse struct {
	TotalGames int64 `json:"totalGames"`
	TopScore   int   `json:"topScore"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit posts one score. The caller must not blindly retry on ambiguous
// failures: the server may have committed before a timeout, and submission is
// not idempotent.
func (c *Client) Submit(ctx context.Context, name string, score int) (SubmitResponse, error) {
	body, err := json.Marshal(map[string]any{"name": name, "score": score})
	if err != nil {
		return SubmitResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/score", bytes.NewReader(body))
	if err != nil {
		return SubmitResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out SubmitResponse
	if err := c.do(req, &out); err != nil {
		return SubmitResponse{}, err
	}
	return out, nil
}

func (c *Client) List(ctx context.Context) ([]rank.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Leaderboard []rank.Entry `json:"leaderboard"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

func (c *Client) Stats(ctx context.Context) (StatsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stats", nil)
	if err != nil {
		return StatsResponse{}, err
	}
	var out StatsResponse
	if err := c.do(req, &out); err != nil {
		return StatsResponse{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error != "" {
			return fmt.Errorf("ranking request failed: %s (status %d)", failure.Error, resp.StatusCode)
		}
		return fmt.Errorf("ranking request failed with status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
