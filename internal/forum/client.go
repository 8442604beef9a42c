// Package forum wraps the forum search provider. Queries prefer the
// authenticated endpoint and fall back to the public one; the adapter never
// returns an error, only an empty result.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/metrics"
)

const (
	maxPosts       = 15
	attemptTimeout = 10 * time.Second
)

// Post is one forum search hit.
type Post struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Community string `json:"community"`
	Score     int    `json:"score"`
	Comments  int    `json:"comments"`
}

// Client talks to the forum provider.
type Client struct {
	apiURL     string
	publicURL  string
	userAgent  string
	tokens     *TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a forum client using tokens for the authenticated path.
func NewClient(cfg *config.ForumConfig, tokens *TokenSource, logger *slog.Logger) *Client {
	return &Client{
		apiURL:    cfg.APIURL,
		publicURL: cfg.PublicURL,
		userAgent: cfg.UserAgent,
		tokens:    tokens,
		// Per-attempt deadlines come from the request context
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Search queries each topic sequentially, pools the hits, de-duplicates by
// canonical URL (first occurrence wins), sorts by score descending, and caps
// the result. Per topic: authenticated endpoint first when a token is
// obtainable, public endpoint as fallback on failure or zero results.
func (c *Client) Search(ctx context.Context, topics []string) []Post {
	var pooled []Post
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		pooled = append(pooled, c.searchTopic(ctx, topic)...)
	}
	return rankPosts(pooled, maxPosts)
}

func (c *Client) searchTopic(ctx context.Context, topic string) []Post {
	token, ok := c.tokens.Token(ctx)
	if ok {
		posts := c.query(ctx, c.apiURL, topic, token)
		if len(posts) > 0 {
			return posts
		}
		c.logger.Debug("Authenticated forum search empty, trying public endpoint", "topic", topic)
	}
	return c.query(ctx, c.publicURL, topic, "")
}

// query performs one search attempt. 4xx responses read as zero results.
func (c *Client) query(ctx context.Context, baseURL, topic, token string) []Post {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/search?q=%s&sort=top&limit=%d", baseURL, url.QueryEscape(topic), maxPosts)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.logger.Error("Failed to create forum request", "topic", topic, "error", err)
		return nil
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("forum").Inc()
		c.logger.Warn("Forum search failed", "topic", topic, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			metrics.ProviderErrors.WithLabelValues("forum").Inc()
		}
		c.logger.Warn("Forum search returned non-200", "topic", topic, "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Posts []Post `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ProviderErrors.WithLabelValues("forum").Inc()
		c.logger.Error("Failed to decode forum response", "topic", topic, "error", err)
		return nil
	}
	return payload.Posts
}

// rankPosts de-duplicates by URL keeping first occurrence, sorts by score
// descending (stable, so ties keep pooled order), and truncates to max.
func rankPosts(posts []Post, max int) []Post {
	seen := make(map[string]bool, len(posts))
	unique := make([]Post, 0, len(posts))
	for _, p := range posts {
		if p.URL == "" || seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		unique = append(unique, p)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	if len(unique) > max {
		unique = unique[:max]
	}
	return unique
}
