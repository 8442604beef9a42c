// Package catalog wraps the video catalog provider. Channel resolution
// failures are surfaced to the caller (the pipeline treats them as fatal);
// everything else degrades to empty results.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/pulsehub/channel-pulse/internal/cache"
	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/metrics"
)

// ErrChannelNotFound indicates the source reference maps to no known channel.
var ErrChannelNotFound = errors.New("channel not found")

const maxVideos = 10

// Channel is a resolved content source.
type Channel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Subscribers int64  `json:"subscribers"`
}

// Video is one recent catalog item.
type Video struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	PublishedAt time.Time `json:"published_at"`
}

// Client talks to the catalog provider.
type Client struct {
	baseURL    string
	apiKey     string
	store      cache.Store
	channelTTL time.Duration
	videosTTL  time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a catalog client memoizing results in store.
func NewClient(cfg *config.CatalogConfig, cacheCfg config.CacheConfig, store cache.Store, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		store:      store,
		channelTTL: cacheCfg.ChannelTTL(),
		videosTTL:  cacheCfg.VideosTTL(),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
}

// ResolveChannel maps a source reference to a channel.
// Returns ErrChannelNotFound when the provider knows no such channel.
func (c *Client) ResolveChannel(ctx context.Context, sourceRef string) (*Channel, error) {
	cacheKey := "channel:" + sourceRef
	if data, ok := c.store.Get(ctx, cacheKey); ok {
		var ch Channel
		if err := json.Unmarshal(data, &ch); err == nil {
			return &ch, nil
		}
	}

	u := fmt.Sprintf("%s/channels?ref=%s", c.baseURL, url.QueryEscape(sourceRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("channel lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrChannelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("catalog returned status %d: %s", resp.StatusCode, string(body))
	}

	var ch Channel
	if err := json.NewDecoder(resp.Body).Decode(&ch); err != nil {
		return nil, fmt.Errorf("failed to decode channel: %w", err)
	}
	if ch.ID == "" {
		return nil, ErrChannelNotFound
	}

	if data, err := json.Marshal(ch); err == nil {
		c.store.Set(ctx, cacheKey, data, c.channelTTL)
	}
	return &ch, nil
}

// RecentVideos returns up to 10 recent items for channelID.
// Any failure degrades to an empty slice.
func (c *Client) RecentVideos(ctx context.Context, channelID string) []Video {
	cacheKey := "videos:" + channelID
	if data, ok := c.store.Get(ctx, cacheKey); ok {
		var videos []Video
		if err := json.Unmarshal(data, &videos); err == nil {
			return videos
		}
	}

	u := fmt.Sprintf("%s/videos?channel_id=%s&limit=%d", c.baseURL, url.QueryEscape(channelID), maxVideos)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		c.logger.Error("Failed to create videos request", "channel_id", channelID, "error", err)
		return nil
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("catalog").Inc()
		c.logger.Error("Videos fetch failed", "channel_id", channelID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ProviderErrors.WithLabelValues("catalog").Inc()
		c.logger.Error("Videos fetch returned non-200", "channel_id", channelID, "status", resp.StatusCode)
		return nil
	}

	var payload struct {
		Items []Video `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.ProviderErrors.WithLabelValues("catalog").Inc()
		c.logger.Error("Failed to decode videos", "channel_id", channelID, "error", err)
		return nil
	}

	videos := payload.Items
	if len(videos) > maxVideos {
		videos = videos[:maxVideos]
	}

	if data, err := json.Marshal(videos); err == nil {
		c.store.Set(ctx, cacheKey, data, c.videosTTL)
	}
	return videos
}
