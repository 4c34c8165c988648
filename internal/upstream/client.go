package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

const playersPath = "/players"

// Client fetches player data from the game backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new backend client
func NewClient(cfg *config.UpstreamConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			// A redirect is a non-200 answer, not a second request
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchPlayers performs a single GET {base}/players and returns the raw body.
// Redirects are not followed. Non-200 responses yield
// domain.ErrUpstreamUnavailable; transport failures
// and bodies that are not valid JSON yield *domain.TransportError.
func (c *Client) FetchPlayers(ctx context.Context) ([]byte, error) {
	url := c.baseURL + playersPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "url", url, "error", err)
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("backend returned non-200 status",
			"url", url,
			"status", resp.StatusCode,
			"duration", time.Since(start),
		)
		return nil, fmt.Errorf("backend status %d: %w", resp.StatusCode, domain.ErrUpstreamUnavailable)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	var payload json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	c.logger.Debug("fetched players from backend",
		"url", url,
		"bytes", len(body),
		"duration", time.Since(start),
	)
	return body, nil
}
