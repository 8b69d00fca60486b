// Package enrichment implements the Enrichment Client:
// cache probe, circuit breaker, batched upstream fetch with retry and
// backoff, and write-through persistence — the most intricate component
// in the pipeline.
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/inboxreel/inboxreel/internal/enrichment/breaker"
	"github.com/inboxreel/inboxreel/internal/enrichment/cache"
	"github.com/inboxreel/inboxreel/internal/enrichment/domain"
	"github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/enrichment/youtube"
)

// Error kinds surfaced across the enrichment boundary.
var (
	ErrCircuitOpen       = errors.New("enrichment: circuit open")
	ErrTransientUpstream = errors.New("enrichment: transient upstream failure")

	// ErrQuotaExceeded is returned when the YouTube Data API reports its
	// daily quota exhausted. It implements queue.RetryAfter so a
	// re-enqueued Enrich job waits out the quota window instead of the
	// queue's normal short backoff schedule.
	ErrQuotaExceeded error = quotaExceededError{}
)

// quotaWindow is how long a quota-exhausted job waits before its next
// delivery attempt. The YouTube Data API quota resets daily at
// midnight Pacific time; a fixed window is a simpler, conservative
// stand-in for computing the exact reset instant.
const quotaWindow = time.Hour

type quotaExceededError struct{}

func (quotaExceededError) Error() string            { return "enrichment: quota exceeded" }
func (quotaExceededError) RetryAfter() time.Duration { return quotaWindow }

const rateLimitKey = "youtube"

// Config mirrors the subset of pipelineconfig.Config the client needs,
// kept decoupled from the pkg/pipelineconfig type so this package has no
// import-time dependency on the config loader.
type Config struct {
	BatchSize        int
	CacheTTL         time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
}

// CircuitBreaker is the breaker boundary the Enrichment Client depends
// on, typed as an interface for the same reason cache.Store is: the
// concrete breaker.Breaker is process-local, and a shared-store-backed
// implementation could satisfy this without any caller change.
type CircuitBreaker interface {
	Allow() error
	RecordSuccess()
	RecordFailure()
}

// RateLimiter is the limiter boundary the Enrichment Client depends on,
// given the same interface treatment as CircuitBreaker and cache.Store.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// Client is the Enrichment Client: getMetadata(videoIds) →
// map[video-id]VideoMetadata.
type Client struct {
	cache    cache.Store
	breaker  CircuitBreaker
	limiter  RateLimiter
	youtube  *youtube.Client
	metadata repository.VideoMetadataRepository
	cfg      Config
}

func New(store cache.Store, limiter RateLimiter, yt *youtube.Client, metadata repository.VideoMetadataRepository, cfg Config) *Client {
	return &Client{
		cache:    store,
		breaker:  breaker.New(cfg.FailureThreshold, cfg.ResetTimeout),
		limiter:  limiter,
		youtube:  yt,
		metadata: metadata,
		cfg:      cfg,
	}
}

// cachedMetadata is the JSON shape written through to the cache —
// publishedAt kept as an ISO string so readers rehydrate it themselves.
type cachedMetadata struct {
	VideoID             string   `json:"video_id"`
	Title               string   `json:"title"`
	ChannelID           string   `json:"channel_id"`
	ChannelTitle        string   `json:"channel_title"`
	PublishedAt         string   `json:"published_at"`
	DurationSeconds     int      `json:"duration_seconds"`
	Category            string   `json:"category"`
	DescriptionKeywords []string `json:"description_keywords"`
	ThumbnailURL        string   `json:"thumbnail_url"`
	ViewCount           uint64   `json:"view_count"`
	LikeCount           uint64   `json:"like_count"`
}

// GetMetadata resolves videoIDs through cache, then the circuit
// breaker, then batched upstream calls, writing fetched results back
// through the cache.
func (c *Client) GetMetadata(ctx context.Context, videoIDs []string) (map[string]domain.VideoMetadata, error) {
	result := make(map[string]domain.VideoMetadata, len(videoIDs))
	var misses []string

	for _, id := range videoIDs {
		if raw, ok := c.cache.Get(cache.MetadataKey(id)); ok {
			var cm cachedMetadata
			if err := json.Unmarshal(raw, &cm); err == nil {
				result[id] = fromCached(cm)
				continue
			}
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	if err := c.breaker.Allow(); err != nil {
		return result, ErrCircuitOpen
	}

	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	var batchErr error
	for start := 0; start < len(misses); start += batchSize {
		end := start + batchSize
		if end > len(misses) {
			end = len(misses)
		}
		batch := misses[start:end]

		items, rateLimited, err := c.fetchBatchWithRetry(ctx, batch)
		if err != nil {
			if !rateLimited {
				c.breaker.RecordFailure()
			}
			if errors.Is(err, ErrQuotaExceeded) {
				return result, ErrQuotaExceeded
			}
			batchErr = err
			continue
		}
		c.breaker.RecordSuccess()

		for _, item := range items {
			meta, err := parseItem(item)
			if err != nil {
				log.Printf("[Enrich] skipping malformed item %s: %v", item.VideoID, err)
				continue
			}
			meta.FetchedAt = time.Now()

			if err := c.metadata.Upsert(&meta); err != nil {
				log.Printf("[Enrich] failed to persist metadata for %s: %v", meta.VideoID, err)
			}
			c.writeThrough(meta)
			result[meta.VideoID] = meta
		}
	}

	return result, batchErr
}

func (c *Client) writeThrough(meta domain.VideoMetadata) {
	ttl := c.cfg.CacheTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	cm := cachedMetadata{
		VideoID:             meta.VideoID,
		Title:               meta.Title,
		ChannelID:           meta.ChannelID,
		ChannelTitle:        meta.ChannelTitle,
		PublishedAt:         meta.PublishedAt.UTC().Format(time.RFC3339),
		DurationSeconds:     meta.DurationSeconds,
		Category:            meta.Category,
		DescriptionKeywords: meta.DescriptionKeywords,
		ThumbnailURL:        meta.ThumbnailURL,
		ViewCount:           meta.ViewCount,
		LikeCount:           meta.LikeCount,
	}
	raw, err := json.Marshal(cm)
	if err != nil {
		return
	}
	c.cache.Set(cache.MetadataKey(meta.VideoID), raw, ttl)
}

// fetchBatchWithRetry issues one batch call with up to 3 attempts,
// backing off between retries. The returned bool reports whether every
// attempt failed with HTTP 429 — a legitimate rate-limit response the
// circuit breaker must not count as a failure, as opposed to a real
// upstream fault.
func (c *Client) fetchBatchWithRetry(ctx context.Context, videoIDs []string) ([]youtube.Item, bool, error) {
	const maxAttempts = 3
	var lastErr error
	rateLimitedOnly := true

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx, rateLimitKey); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrTransientUpstream, err)
		}

		items, err := c.youtube.List(ctx, videoIDs)
		if err == nil {
			return items, false, nil
		}
		lastErr = err

		if isQuotaExhausted(err) {
			return nil, false, ErrQuotaExceeded
		}
		if !isRateLimited(err) {
			rateLimitedOnly = false
		}

		var sleep time.Duration
		if retryAfter, ok := retryAfterSeconds(err); ok {
			sleep = time.Duration(retryAfter) * time.Second
		} else {
			// 2^attempt seconds, matching both the 429-without-Retry-After
			// case and the "2^attempt * 1000 ms" case for any other
			// failure — the two are the
			// same duration.
			sleep = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}

	return nil, rateLimitedOnly, fmt.Errorf("%w: %v", ErrTransientUpstream, lastErr)
}

func isQuotaExhausted(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "403") && (strings.Contains(msg, "quota") || strings.Contains(msg, "quotaexceeded"))
}

// isRateLimited reports an HTTP 429 response — the YouTube Data API's
// ordinary backpressure signal, distinct from the 403 quota-exhausted
// case isQuotaExhausted checks for.
func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}

// retryAfterSeconds is a best-effort extraction; the googleapi error
// type doesn't surface headers directly in all client versions, so
// unparsed responses fall back to exponential backoff.
func retryAfterSeconds(err error) (int, bool) {
	msg := err.Error()
	idx := strings.Index(msg, "Retry-After:")
	if idx < 0 {
		return 0, false
	}
	rest := strings.TrimSpace(msg[idx+len("Retry-After:"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	seconds, err2 := strconv.Atoi(fields[0])
	if err2 != nil {
		return 0, false
	}
	return seconds, true
}

func fromCached(cm cachedMetadata) domain.VideoMetadata {
	published, _ := time.Parse(time.RFC3339, cm.PublishedAt)
	return domain.VideoMetadata{
		VideoID:             cm.VideoID,
		Title:               cm.Title,
		ChannelID:           cm.ChannelID,
		ChannelTitle:        cm.ChannelTitle,
		PublishedAt:         published,
		DurationSeconds:     cm.DurationSeconds,
		Category:            cm.Category,
		DescriptionKeywords: cm.DescriptionKeywords,
		ThumbnailURL:        cm.ThumbnailURL,
		ViewCount:           cm.ViewCount,
		LikeCount:           cm.LikeCount,
	}
}
