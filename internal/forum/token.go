package forum

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulsehub/channel-pulse/internal/cache"
	"github.com/pulsehub/channel-pulse/internal/config"
)

const (
	tokenCacheKey = "forum:token"

	// expiryMargin keeps us from handing out a token that could expire
	// while a request using it is still in flight.
	expiryMargin = 60 * time.Second
)

// tokenRecord is the cached credential with its absolute expiry.
type tokenRecord struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenSource obtains and caches a bearer token for the authenticated
// forum endpoint via the client-credentials exchange.
type TokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	userAgent    string
	store        cache.Store
	httpClient   *http.Client
	logger       *slog.Logger
	now          func() time.Time
}

// NewTokenSource creates a token source backed by store.
func NewTokenSource(cfg *config.ForumConfig, store cache.Store, logger *slog.Logger) *TokenSource {
	return &TokenSource{
		authURL:      cfg.AuthURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		userAgent:    cfg.UserAgent,
		store:        store,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// Token returns a bearer token, refreshing if the cached one is absent or
// within the expiry margin. Returns ok=false when no token can be obtained;
// this is never an error to the caller. Concurrent callers hitting the
// refresh path may each exchange credentials; the exchange is idempotent.
func (t *TokenSource) Token(ctx context.Context) (string, bool) {
	if t.clientID == "" || t.clientSecret == "" {
		return "", false
	}

	if data, ok := t.store.Get(ctx, tokenCacheKey); ok {
		var rec tokenRecord
		if err := json.Unmarshal(data, &rec); err == nil && rec.ExpiresAt.Sub(t.now()) > expiryMargin {
			return rec.Value, true
		}
	}

	return t.refresh(ctx)
}

func (t *TokenSource) refresh(ctx context.Context) (string, bool) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		t.logger.Error("Failed to create token request", "error", err)
		return "", false
	}
	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Error("Token exchange failed", "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.logger.Error("Token exchange returned non-200", "status", resp.StatusCode, "body", string(body))
		return "", false
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.logger.Error("Failed to decode token response", "error", err)
		return "", false
	}
	if payload.AccessToken == "" {
		t.logger.Error("Token exchange returned empty token")
		return "", false
	}

	lifetime := time.Duration(payload.ExpiresIn) * time.Second
	rec := tokenRecord{Value: payload.AccessToken, ExpiresAt: t.now().Add(lifetime)}
	if data, err := json.Marshal(rec); err == nil {
		ttl := lifetime - expiryMargin
		if ttl > 0 {
			t.store.Set(ctx, tokenCacheKey, data, ttl)
		}
	}

	return payload.AccessToken, true
}
