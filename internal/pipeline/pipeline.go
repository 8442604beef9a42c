// Package pipeline orchestrates the staged channel analysis: resolve,
// rate-check, videos, topics, then news and forum concurrently, then ideas.
// Adapters degrade to empty results on failure; only an unresolvable
// channel, a rate-limit denial, or a failed final stage terminates a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pulsehub/channel-pulse/internal/catalog"
	"github.com/pulsehub/channel-pulse/internal/config"
	"github.com/pulsehub/channel-pulse/internal/forum"
	"github.com/pulsehub/channel-pulse/internal/inference"
	"github.com/pulsehub/channel-pulse/internal/metrics"
	"github.com/pulsehub/channel-pulse/internal/news"
	"github.com/pulsehub/channel-pulse/internal/ratelimit"
)

// newsLookback bounds the news search date range.
const newsLookback = 14 * 24 * time.Hour

// forumTopicLimit caps how many topics are queried per run; each topic is a
// separate provider round trip.
const forumTopicLimit = 3

// Request is one accepted analysis request.
type Request struct {
	SourceRef string
	ClientID  string
}

// Catalog resolves channels and lists recent videos.
type Catalog interface {
	ResolveChannel(ctx context.Context, sourceRef string) (*catalog.Channel, error)
	RecentVideos(ctx context.Context, channelID string) []catalog.Video
}

// NewsSearcher finds recent articles for a query.
type NewsSearcher interface {
	Search(ctx context.Context, query string, since time.Time) []news.Article
}

// ForumSearcher finds community discussions for a set of topics.
type ForumSearcher interface {
	Search(ctx context.Context, topics []string) []forum.Post
}

// Analyzer extracts topics and generates ideas via the completion provider.
type Analyzer interface {
	ExtractTopics(ctx context.Context, videos []catalog.Video) []string
	GenerateIdeas(ctx context.Context, videos []catalog.Video, topics []string, articles []news.Article, posts []forum.Post) ([]inference.Idea, error)
}

// Orchestrator runs the analysis pipeline. All collaborators are injected;
// the orchestrator owns no shared state of its own.
type Orchestrator struct {
	catalog  Catalog
	news     NewsSearcher
	forum    ForumSearcher
	analyzer Analyzer
	limiter  *ratelimit.Limiter
	limits   config.RateLimitConfig
	logger   *slog.Logger
}

// New creates an orchestrator.
func New(cat Catalog, ns NewsSearcher, fs ForumSearcher, an Analyzer, limiter *ratelimit.Limiter, limits config.RateLimitConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		catalog:  cat,
		news:     ns,
		forum:    fs,
		analyzer: an,
		limiter:  limiter,
		limits:   limits,
		logger:   logger,
	}
}

// Run starts a pipeline run and returns its event stream. The channel is
// closed after exactly one terminal event. A canceled ctx stops event
// delivery but does not abort in-flight provider calls; their results are
// discarded.
func (o *Orchestrator) Run(ctx context.Context, req Request) <-chan Event {
	events := make(chan Event, 16)
	go func() {
		defer close(events)
		o.run(ctx, req, events)
	}()
	return events
}

// emit delivers an event unless the caller has gone away.
func emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) run(ctx context.Context, req Request, events chan<- Event) {
	runID := ulid.Make().String()
	logger := o.logger.With("run_id", runID, "source_ref", req.SourceRef)

	// Provider calls outlive a caller disconnect; only emission stops.
	runCtx := context.WithoutCancel(ctx)

	// Caller-identity rate domain, checked before anything is resolved
	if res := o.limiter.Check("client:"+req.ClientID, o.limits.ClientMax, o.limits.ClientWindow()); !res.Allowed {
		o.reject(ctx, events, logger, "client", res)
		return
	}

	// channel-resolve
	channel, err := o.catalog.ResolveChannel(runCtx, req.SourceRef)
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		logger.Warn("Channel resolution failed", "error", err)
		if errors.Is(err, catalog.ErrChannelNotFound) {
			emit(ctx, events, errorEvent(fmt.Sprintf("Could not find a channel for %q", req.SourceRef)))
		} else {
			emit(ctx, events, errorEvent("Channel lookup is unavailable right now, try again later"))
		}
		return
	}
	logger = logger.With("channel_id", channel.ID)

	// Resource-identity rate domain, stricter, keyed by the resolved channel
	if res := o.limiter.Check("channel:"+channel.ID, o.limits.ChannelMax, o.limits.ChannelWindow()); !res.Allowed {
		o.reject(ctx, events, logger, "channel", res)
		return
	}

	// videos-fetch
	emit(ctx, events, statusEvent(fmt.Sprintf("Fetching recent videos for %s", channel.Title)))
	videos := timedStage("videos", func() []catalog.Video {
		return o.catalog.RecentVideos(runCtx, channel.ID)
	})
	if len(videos) > 0 {
		emit(ctx, events, partialEvent(KindVideos, videos))
	}

	// topic-analyze
	emit(ctx, events, statusEvent("Analyzing channel topics"))
	topics := timedStage("topics", func() []string {
		return o.analyzer.ExtractTopics(runCtx, videos)
	})
	if len(topics) > 0 {
		emit(ctx, events, partialEvent(KindTopics, topics))
	}

	// news and forum fetches: isolated branches, a failed or empty branch
	// contributes an empty slice and no partial event
	emit(ctx, events, statusEvent("Searching news and community discussions"))
	articles, posts := o.gatherContext(ctx, runCtx, events, channel, topics)

	// idea-generate: runs with whatever subset of signals survived
	emit(ctx, events, statusEvent("Generating content ideas"))
	start := time.Now()
	ideas, err := o.analyzer.GenerateIdeas(runCtx, videos, topics, articles, posts)
	metrics.StageDuration.WithLabelValues("ideas").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineRuns.WithLabelValues("error").Inc()
		logger.Error("Idea generation failed", "error", err)
		emit(ctx, events, errorEvent("Idea generation failed, try again later"))
		return
	}
	if len(ideas) > 0 {
		emit(ctx, events, partialEvent(KindIdeas, ideas))
	}

	metrics.PipelineRuns.WithLabelValues("complete").Inc()
	logger.Info("Pipeline run complete",
		"videos", len(videos), "topics", len(topics),
		"news", len(articles), "forum_posts", len(posts), "ideas", len(ideas))
	emit(ctx, events, completeEvent())
}

// gatherContext runs the news and forum searches concurrently and joins them.
// Neither branch can fail the run; each degrades independently to empty.
func (o *Orchestrator) gatherContext(ctx, runCtx context.Context, events chan<- Event, channel *catalog.Channel, topics []string) ([]news.Article, []forum.Post) {
	newsQuery := channel.Title
	forumTopics := []string{channel.Title}
	if len(topics) > 0 {
		n := min(len(topics), forumTopicLimit)
		newsQuery = strings.Join(topics[:n], " OR ")
		forumTopics = topics[:n]
	}

	var (
		wg       sync.WaitGroup
		articles []news.Article
		posts    []forum.Post
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		articles = timedStage("news", func() []news.Article {
			return o.news.Search(runCtx, newsQuery, time.Now().Add(-newsLookback))
		})
		if len(articles) > 0 {
			emit(ctx, events, partialEvent(KindNews, articles))
		}
	}()
	go func() {
		defer wg.Done()
		posts = timedStage("forum", func() []forum.Post {
			return o.forum.Search(runCtx, forumTopics)
		})
		if len(posts) > 0 {
			emit(ctx, events, partialEvent(KindForum, posts))
		}
	}()
	wg.Wait()

	return articles, posts
}

// reject terminates a run with a rate-limit error carrying the reset instant.
func (o *Orchestrator) reject(ctx context.Context, events chan<- Event, logger *slog.Logger, domain string, res ratelimit.Result) {
	metrics.RateLimitDenials.WithLabelValues(domain).Inc()
	metrics.PipelineRuns.WithLabelValues("rate_limited").Inc()
	logger.Warn("Rate limit exceeded", "domain", domain, "reset_at", res.ResetAt)

	wait := time.Until(res.ResetAt).Round(time.Second)
	ev := errorEvent(fmt.Sprintf("Rate limit exceeded, retry in %s", wait))
	ev.Data = RateLimitInfo{ResetAt: res.ResetAt}
	emit(ctx, events, ev)
}

// timedStage records a stage duration histogram sample around fn.
func timedStage[T any](stage string, fn func() T) T {
	start := time.Now()
	out := fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	return out
}
