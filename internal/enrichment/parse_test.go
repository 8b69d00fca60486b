package enrichment

import (
	"strings"
	"testing"

	"github.com/inboxreel/inboxreel/internal/enrichment/youtube"
)

func TestParseISO8601Duration(t *testing.T) {
	cases := []struct {
		period string
		want   int
	}{
		{"PT1H2M10S", 3730},
		{"PT45S", 45},
		{"PT", 0},
		{"PT1H", 3600},
		{"PT10M", 600},
	}
	for _, tc := range cases {
		got, err := parseISO8601Duration(tc.period)
		if err != nil {
			t.Fatalf("parseISO8601Duration(%q) error: %v", tc.period, err)
		}
		if got != tc.want {
			t.Errorf("parseISO8601Duration(%q) = %d, want %d", tc.period, got, tc.want)
		}
	}
}

func TestParseISO8601DurationMalformed(t *testing.T) {
	if _, err := parseISO8601Duration("not a duration"); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestDescriptionKeywords(t *testing.T) {
	description := "a an the cat sat on mat near window overlooking quiet valley today yesterday tomorrow morning evening afternoon sunshine rainfall windstorm snowfall extra"
	got := descriptionKeywords(description)
	if len(got) > 20 {
		t.Fatalf("expected at most 20 keywords, got %d", len(got))
	}
	for _, kw := range got {
		if len(kw) <= 3 {
			t.Errorf("keyword %q has length <= 3, should have been filtered", kw)
		}
	}
}

func TestDescriptionKeywordsShortWordsFiltered(t *testing.T) {
	got := descriptionKeywords("a an at in on to cats dogs")
	want := []string{"cats", "dogs"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("descriptionKeywords() = %v, want %v", got, want)
	}
}

func TestParseItemTolerantOfMalformedFields(t *testing.T) {
	item := youtube.Item{
		VideoID:     "abc123xyz00",
		Title:       "Test Video",
		PublishedAt: "not-a-timestamp",
		Duration:    "garbage",
	}
	meta, err := parseItem(item)
	if err != nil {
		t.Fatalf("parseItem() error = %v", err)
	}
	if !meta.PublishedAt.IsZero() {
		t.Error("expected zero PublishedAt for malformed timestamp")
	}
	if meta.DurationSeconds != 0 {
		t.Errorf("expected zero duration for malformed duration, got %d", meta.DurationSeconds)
	}
}

func TestParseItemRequiresVideoID(t *testing.T) {
	_, err := parseItem(youtube.Item{Title: "No ID"})
	if err == nil {
		t.Error("expected error when VideoID is empty")
	}
}
