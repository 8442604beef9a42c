// Package news wraps the news search provider. The adapter never returns an
// error: transport failures, timeouts, and 4xx responses all degrade to an
// empty result so the pipeline can continue without this stage.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/metrics"
)

// Article is one news search hit.
type Article struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Client talks to the news search provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a news client.
func NewClient(cfg *config.NewsConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// Search returns articles matching query published after since.
// Any failure degrades to an empty slice. A missing API key is a silent miss.
func (c *Client) Search(ctx context.Context, query string, since time.Time) []Article {
	if c.apiKey == "" {
		c.logger.Debug("News search skipped, no API key configured")
		return nil
	}

	u := fmt.Sprintf("%s/search?q=%s&from=%s",
		c.baseURL, url.QueryEscape(query), since.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.logger.Error("Failed to create news request", "query", query, "error", err)
		return nil
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("news").Inc()
		c.logger.Error("News search failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 4xx means the query found nothing usable, not a pipeline problem
		if resp.StatusCode >= 500 {
			metrics.ProviderErrors.WithLabelValues("news").Inc()
		}
		c.logger.Warn("News search returned non-200", "query", query, "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Articles []Article `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ProviderErrors.WithLabelValues("news").Inc()
		c.logger.Error("Failed to decode news response", "query", query, "error", err)
		return nil
	}
	return payload.Articles
}
