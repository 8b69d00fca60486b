package eval

import (
	"testing"
	"time"

	feedbackdomain "github.com/inboxreel/inboxreel/internal/feedback/domain"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
)

func ranking(linkID string, finalScore float64, rankedAt time.Time) rankrepo.Ranking {
	return rankrepo.Ranking{LinkID: linkID, FinalScore: finalScore, RankedAt: rankedAt}
}

func TestRelevanceMapMarksWatchedAndLabeled(t *testing.T) {
	rows := []feedbackdomain.Feedback{
		{LinkID: "a", Action: feedbackdomain.ActionWatched},
		{LinkID: "b", Action: feedbackdomain.ActionSkipped, RelevanceLabel: "watch_now"},
		{LinkID: "c", Action: feedbackdomain.ActionSkipped},
	}
	m := relevanceMap(rows)
	if !m["a"] || !m["b"] {
		t.Errorf("relevanceMap = %v, want a and b marked relevant", m)
	}
	if m["c"] {
		t.Errorf("relevanceMap marked c relevant, want not")
	}
}

func TestPrecisionAtK(t *testing.T) {
	now := time.Now()
	rankings := []rankrepo.Ranking{
		ranking("a", 0.9, now), ranking("b", 0.8, now), ranking("c", 0.7, now), ranking("d", 0.6, now),
	}
	relevant := map[string]bool{"a": true, "c": true}

	if got := precisionAtK(rankings, relevant, 2); got != 0.5 {
		t.Errorf("precisionAtK(k=2) = %v, want 0.5", got)
	}
	if got := precisionAtK(rankings, relevant, 4); got != 0.5 {
		t.Errorf("precisionAtK(k=4) = %v, want 0.5", got)
	}
	if got := precisionAtK(rankings, relevant, 10); got != 0.5 {
		t.Errorf("precisionAtK(k=10) with k > len(rankings) = %v, want 0.5", got)
	}
}

func TestPrecisionAtKEmptyRankings(t *testing.T) {
	if got := precisionAtK(nil, map[string]bool{}, 5); got != 0 {
		t.Errorf("precisionAtK with no rankings = %v, want 0", got)
	}
}

func TestJaccardIdenticalSets(t *testing.T) {
	s := map[string]struct{}{"a": {}, "b": {}}
	if got := jaccard(s, s); got != 1 {
		t.Errorf("jaccard(s, s) = %v, want 1", got)
	}
}

func TestJaccardDisjointSets(t *testing.T) {
	a := map[string]struct{}{"a": {}}
	b := map[string]struct{}{"b": {}}
	if got := jaccard(a, b); got != 0 {
		t.Errorf("jaccard(disjoint) = %v, want 0", got)
	}
}

func TestJaccardBothEmpty(t *testing.T) {
	if got := jaccard(map[string]struct{}{}, map[string]struct{}{}); got != 1 {
		t.Errorf("jaccard(empty, empty) = %v, want 1", got)
	}
}

func TestStabilityDefaultsToOneWithFewerThanTwoDays(t *testing.T) {
	now := time.Now()
	rankings := []rankrepo.Ranking{ranking("a", 0.9, now), ranking("b", 0.8, now)}
	if got := stability(rankings); got != 1.0 {
		t.Errorf("stability() with one day of data = %v, want 1.0", got)
	}
}

func TestStabilityComputesAdjacentDayJaccard(t *testing.T) {
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	rankings := []rankrepo.Ranking{
		ranking("a", 0.9, day1), ranking("b", 0.8, day1),
		ranking("a", 0.9, day2), ranking("c", 0.8, day2),
	}
	got := stability(rankings)
	// top-20 sets are {a,b} and {a,c}: intersection 1, union 3.
	want := 1.0 / 3.0
	if got != want {
		t.Errorf("stability() = %v, want %v", got, want)
	}
}

func TestTopLinkIDsRespectsLimit(t *testing.T) {
	now := time.Now()
	rankings := []rankrepo.Ranking{ranking("a", 0.9, now), ranking("b", 0.8, now), ranking("c", 0.7, now)}
	set := topLinkIDs(rankings, 2)
	if len(set) != 2 {
		t.Errorf("topLinkIDs(limit=2) returned %d entries, want 2", len(set))
	}
}
