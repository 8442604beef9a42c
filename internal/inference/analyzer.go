package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/pulsehub/channel-pulse/internal/catalog"
	"github.com/pulsehub/channel-pulse/internal/forum"
	"github.com/pulsehub/channel-pulse/internal/metrics"
	"github.com/pulsehub/channel-pulse/internal/news"
)

// Character budgets keep prompts bounded regardless of what providers return.
const (
	titleBudget = 100
	descBudget  = 250
	maxTopics   = 5
	maxIdeas    = 5
)

// Idea is one generated content suggestion.
type Idea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ExtractTopics asks the model for up to 5 topics covering the given videos.
// Any failure degrades to an empty slice; the model returning malformed or
// missing fields degrades the same way.
func (c *Client) ExtractTopics(ctx context.Context, videos []catalog.Video) []string {
	if len(videos) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("You are analyzing a video channel. Given these recent videos, ")
	b.WriteString("identify up to 5 recurring topics. Respond with a JSON object ")
	b.WriteString(`of the form {"topics": ["topic", ...]}.` + "\n\nVideos:\n")
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, truncate(v.Title, titleBudget), truncate(v.Description, descBudget))
	}

	content, err := c.complete(ctx, b.String())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("inference").Inc()
		c.logger.Error("Topic extraction failed", "error", err)
		return nil
	}

	var parsed struct {
		Topics []string `json:"topics"`
	}
	if err := unmarshalLoose(content, &parsed); err != nil {
		c.logger.Warn("Topic extraction returned malformed JSON", "error", err)
		return nil
	}

	topics := make([]string, 0, maxTopics)
	for _, t := range parsed.Topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		topics = append(topics, t)
		if len(topics) == maxTopics {
			break
		}
	}
	return topics
}

// GenerateIdeas asks the model for up to 5 content ideas from whatever subset
// of signals survived the earlier stages. Empty news/forum input is fine.
// Unlike the other adapter methods the error is returned: this is the final
// required stage and the orchestrator decides fatality.
func (c *Client) GenerateIdeas(ctx context.Context, videos []catalog.Video, topics []string, articles []news.Article, posts []forum.Post) ([]Idea, error) {
	var b strings.Builder
	b.WriteString("You are a content strategist. Based on the signals below, ")
	b.WriteString("propose up to 5 new video ideas. Respond with a JSON object of ")
	b.WriteString(`the form {"ideas": [{"title": "...", "description": "..."}, ...]}.` + "\n")

	if len(topics) > 0 {
		b.WriteString("\nChannel topics: " + strings.Join(topics, ", ") + "\n")
	}
	if len(videos) > 0 {
		b.WriteString("\nRecent videos:\n")
		for _, v := range videos {
			fmt.Fprintf(&b, "- %s\n", truncate(v.Title, titleBudget))
		}
	}
	if len(articles) > 0 {
		b.WriteString("\nRelated news:\n")
		for _, a := range articles {
			fmt.Fprintf(&b, "- %s (%s)\n", truncate(a.Title, titleBudget), a.Source)
		}
	}
	if len(posts) > 0 {
		b.WriteString("\nCommunity discussions:\n")
		for _, p := range posts {
			fmt.Fprintf(&b, "- %s (score %d)\n", truncate(p.Title, titleBudget), p.Score)
		}
	}

	content, err := c.complete(ctx, b.String())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("inference").Inc()
		return nil, fmt.Errorf("idea generation failed: %w", err)
	}

	var parsed struct {
		Ideas []Idea `json:"ideas"`
	}
	if err := unmarshalLoose(content, &parsed); err != nil {
		// Malformed structure is a degraded result, not a hard failure
		c.logger.Warn("Idea generation returned malformed JSON", "error", err)
		return nil, nil
	}

	ideas := make([]Idea, 0, maxIdeas)
	for _, idea := range parsed.Ideas {
		if strings.TrimSpace(idea.Title) == "" {
			continue
		}
		ideas = append(ideas, idea)
		if len(ideas) == maxIdeas {
			break
		}
	}
	return ideas, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
