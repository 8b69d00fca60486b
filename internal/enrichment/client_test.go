package enrichment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/inboxreel/inboxreel/internal/enrichment/cache"
	"github.com/inboxreel/inboxreel/internal/enrichment/domain"
	"github.com/inboxreel/inboxreel/internal/enrichment/ratelimit"
)

type fakeMetadataRepo struct {
	upserted []*domain.VideoMetadata
}

func (f *fakeMetadataRepo) FindByIDs(videoIDs []string) ([]domain.VideoMetadata, error) {
	return nil, nil
}

func (f *fakeMetadataRepo) Upsert(metadata *domain.VideoMetadata) error {
	f.upserted = append(f.upserted, metadata)
	return nil
}

// newCacheOnlyClient builds a Client whose youtube field stays nil.
// Valid as long as the test only exercises the all-cache-hit path of
// GetMetadata, which never reaches c.youtube.List.
func newCacheOnlyClient(store cache.Store, metadata *fakeMetadataRepo) *Client {
	return New(store, ratelimit.New(1000), nil, metadata, Config{})
}

func TestGetMetadataAllCacheHits(t *testing.T) {
	store := cache.NewInMemory()
	cm := cachedMetadata{
		VideoID:     "v1",
		Title:       "Intro to Go",
		PublishedAt: time.Now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(cm)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	store.Set(cache.MetadataKey("v1"), raw, time.Hour)

	metadata := &fakeMetadataRepo{}
	client := newCacheOnlyClient(store, metadata)

	result, err := client.GetMetadata(context.Background(), []string{"v1"})
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	got, ok := result["v1"]
	if !ok {
		t.Fatal("result missing video v1")
	}
	if got.Title != "Intro to Go" {
		t.Errorf("Title = %q, want %q", got.Title, "Intro to Go")
	}
	if len(metadata.upserted) != 0 {
		t.Error("Upsert should not be called on an all-cache-hit pass")
	}
}

func TestGetMetadataEmptyInput(t *testing.T) {
	client := newCacheOnlyClient(cache.NewInMemory(), &fakeMetadataRepo{})
	result, err := client.GetMetadata(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("result len = %d, want 0", len(result))
	}
}

func TestIsQuotaExhaustedDetectsQuotaError(t *testing.T) {
	if !isQuotaExhausted(&fakeErr{"googleapi: Error 403: quotaExceeded"}) {
		t.Error("isQuotaExhausted() = false, want true")
	}
	if isQuotaExhausted(&fakeErr{"googleapi: Error 404: not found"}) {
		t.Error("isQuotaExhausted() = true, want false for unrelated 404")
	}
	if isQuotaExhausted(&fakeErr{"403 forbidden, no quota mention"}) {
		t.Error("isQuotaExhausted() = true, want false without a quota keyword")
	}
}

func TestRetryAfterSecondsParsesHeader(t *testing.T) {
	seconds, ok := retryAfterSeconds(&fakeErr{"googleapi: Error 429 Retry-After: 30 seconds"})
	if !ok {
		t.Fatal("retryAfterSeconds() ok = false, want true")
	}
	if seconds != 30 {
		t.Errorf("seconds = %d, want 30", seconds)
	}
}

func TestRetryAfterSecondsMissing(t *testing.T) {
	_, ok := retryAfterSeconds(&fakeErr{"googleapi: Error 500: internal error"})
	if ok {
		t.Error("retryAfterSeconds() ok = true, want false when header absent")
	}
}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
