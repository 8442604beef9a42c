package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehub/channel-pulse/internal/catalog"
	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/forum"
	"github.com/pulsehub/channel-pulse/internal/logging"
	"github.com/pulsehub/channel-pulse/internal/news"
)

// completionServer returns the given content as the single chat choice.
func completionServer(t *testing.T, content string, status int) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(&config.InferenceConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}, logging.WithComponent("test"))
	require.NoError(t, err)
	return client
}

func TestExtractTopics(t *testing.T) {
	client := completionServer(t, `{"topics": ["joinery", "hand tools", "workshop tours"]}`, http.StatusOK)

	topics := client.ExtractTopics(context.Background(), []catalog.Video{{Title: "Dovetails by hand"}})
	assert.Equal(t, []string{"joinery", "hand tools", "workshop tours"}, topics)
}

func TestExtractTopicsCapsAtFive(t *testing.T) {
	client := completionServer(t, `{"topics": ["a","b","c","d","e","f","g"]}`, http.StatusOK)

	topics := client.ExtractTopics(context.Background(), []catalog.Video{{Title: "v"}})
	assert.Len(t, topics, 5)
}

func TestExtractTopicsMalformedIsEmpty(t *testing.T) {
	client := completionServer(t, `certainly, here are some topics`, http.StatusOK)

	topics := client.ExtractTopics(context.Background(), []catalog.Video{{Title: "v"}})
	assert.Empty(t, topics)
}

func TestExtractTopicsMissingFieldIsEmpty(t *testing.T) {
	client := completionServer(t, `{"something_else": true}`, http.StatusOK)

	topics := client.ExtractTopics(context.Background(), []catalog.Video{{Title: "v"}})
	assert.Empty(t, topics)
}

func TestExtractTopicsNoVideos(t *testing.T) {
	client := completionServer(t, `{"topics": ["x"]}`, http.StatusOK)
	assert.Empty(t, client.ExtractTopics(context.Background(), nil))
}

func TestGenerateIdeas(t *testing.T) {
	client := completionServer(t, `{"ideas": [{"title": "Build a workbench", "description": "Start to finish"}]}`, http.StatusOK)

	ideas, err := client.GenerateIdeas(context.Background(),
		[]catalog.Video{{Title: "v"}},
		[]string{"woodworking"},
		[]news.Article{},
		[]forum.Post{{Title: "p", URL: "u", Score: 1}},
	)
	require.NoError(t, err)
	require.Len(t, ideas, 1)
	assert.Equal(t, "Build a workbench", ideas[0].Title)
}

func TestGenerateIdeasAllEmptyInputs(t *testing.T) {
	client := completionServer(t, `{"ideas": [{"title": "Fresh start"}]}`, http.StatusOK)

	ideas, err := client.GenerateIdeas(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Len(t, ideas, 1)
}

func TestGenerateIdeasTransportFailure(t *testing.T) {
	client := completionServer(t, "", http.StatusInternalServerError)

	_, err := client.GenerateIdeas(context.Background(), nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestGenerateIdeasMalformedIsEmptyNotError(t *testing.T) {
	client := completionServer(t, "no json here", http.StatusOK)

	ideas, err := client.GenerateIdeas(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ideas)
}

func TestUnmarshalLooseCodeFence(t *testing.T) {
	var parsed struct {
		Topics []string `json:"topics"`
	}
	content := "```json\n{\"topics\": [\"a\"]}\n```"
	require.NoError(t, unmarshalLoose(content, &parsed))
	assert.Equal(t, []string{"a"}, parsed.Topics)
}

func TestTruncateBoundsPrompt(t *testing.T) {
	long := strings.Repeat("x", 500)
	assert.Len(t, []rune(truncate(long, titleBudget)), titleBudget+1)
	assert.Equal(t, "short", truncate("short", titleBudget))
}
