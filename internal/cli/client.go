package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a read-only HTTP client for the arbiter API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError is an error body returned by the arbiter, with its HTTP status
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsNotFound reports whether err is a 404 from the API
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Health fetches the server health summary
func (c *Client) Health(ctx context.Context) (HealthResult, error) {
	var out HealthResult
	return out, c.get(ctx, "/api/v1/health", nil, &out)
}

// Leaderboard fetches the top players; limit 0 uses the server default
func (c *Client) Leaderboard(ctx context.Context, limit int) (Leaderboard, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var out Leaderboard
	return out, c.get(ctx, "/api/v1/leaderboard", q, &out)
}

// Player fetches one player's record
func (c *Client) Player(ctx context.Context, name string) (PlayerStats, error) {
	var out PlayerStats
	return out, c.get(ctx, "/api/v1/players/"+url.PathEscape(name), nil, &out)
}

// PlayerMatches fetches every match a player took part in
func (c *Client) PlayerMatches(ctx context.Context, name string) (MatchList, error) {
	var out MatchList
	return out, c.get(ctx, "/api/v1/players/"+url.PathEscape(name)+"/matches", nil, &out)
}

// Match fetches one match by event id
func (c *Client) Match(ctx context.Context, id string) (Match, error) {
	var out Match
	return out, c.get(ctx, "/api/v1/matches/"+url.PathEscape(id), nil, &out)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error APIError `json:"error"`
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if json.Unmarshal(body, &wrapper) == nil && wrapper.Error.Code != "" {
			apiErr.Code = wrapper.Error.Code
			apiErr.Message = wrapper.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
