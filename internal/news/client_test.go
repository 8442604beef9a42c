package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/logging"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.NewsConfig{BaseURL: srv.URL, APIKey: "test-key"}, logging.WithComponent("test"))
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "woodworking", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		json.NewEncoder(w).Encode(map[string]any{
			"articles": []Article{
				{Title: "Hand tools are back", Source: "CraftDaily", URL: "https://example.com/a"},
			},
		})
	}))

	articles := client.Search(context.Background(), "woodworking", time.Now().AddDate(0, 0, -7))
	require.Len(t, articles, 1)
	assert.Equal(t, "Hand tools are back", articles[0].Title)
}

func TestSearchClientErrorIsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	articles := client.Search(context.Background(), "anything", time.Now())
	assert.Empty(t, articles)
}

func TestSearchMalformedBodyIsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))

	articles := client.Search(context.Background(), "anything", time.Now())
	assert.Empty(t, articles)
}

func TestSearchWithoutKeySkips(t *testing.T) {
	client := NewClient(&config.NewsConfig{BaseURL: "http://127.0.0.1:1"}, logging.WithComponent("test"))
	articles := client.Search(context.Background(), "anything", time.Now())
	assert.Empty(t, articles)
}
