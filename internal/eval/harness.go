// Package eval implements the offline Evaluation Harness: precision@k, coverage, novelty, and stability, computed as
// deterministic functions of persisted Rankings and Feedback.
package eval

import (
	"sort"
	"time"

	emailrepo "github.com/inboxreel/inboxreel/internal/email/repository"
	feedbackdomain "github.com/inboxreel/inboxreel/internal/feedback/domain"
	feedbackrepo "github.com/inboxreel/inboxreel/internal/feedback/repository"
	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
)

var defaultKs = []int{5, 10, 20}

// Report is the harness's output for one (user, range) evaluation.
type Report struct {
	PrecisionAtK map[int]float64
	Coverage     float64
	Novelty      float64
	Stability    float64
}

// Harness replays stored rankings against stored feedback for one user
// over one date range.
type Harness struct {
	rankings *rankrepo.Repository
	feedback feedbackrepo.Repository
	links    emailrepo.LinkRepository
	metadata enrichrepo.VideoMetadataRepository
}

func New(rankings *rankrepo.Repository, feedback feedbackrepo.Repository, links emailrepo.LinkRepository, metadata enrichrepo.VideoMetadataRepository) *Harness {
	return &Harness{rankings: rankings, feedback: feedback, links: links, metadata: metadata}
}

// Evaluate computes the full report for userID over [from, to). A nil
// ks defaults to {5, 10, 20}.
func (h *Harness) Evaluate(userID string, from, to time.Time, ks []int) (Report, error) {
	if len(ks) == 0 {
		ks = defaultKs
	}

	rankings, err := h.rankings.ListInRange(userID, from, to)
	if err != nil {
		return Report{}, err
	}
	feedbackRows, err := h.feedback.ListInRange(userID, from, to)
	if err != nil {
		return Report{}, err
	}

	relevant := relevanceMap(feedbackRows)

	report := Report{PrecisionAtK: make(map[int]float64, len(ks))}
	for _, k := range ks {
		report.PrecisionAtK[k] = precisionAtK(rankings, relevant, k)
	}

	coverage, err := h.coverage(userID, from, to, rankings)
	if err != nil {
		return Report{}, err
	}
	report.Coverage = coverage

	novelty, err := h.novelty(rankings)
	if err != nil {
		return Report{}, err
	}
	report.Novelty = novelty

	report.Stability = stability(rankings)

	return report, nil
}

// relevanceMap marks a link relevant iff an action is watched or a
// provided label is watch_now.
func relevanceMap(rows []feedbackdomain.Feedback) map[string]bool {
	m := make(map[string]bool, len(rows))
	for _, f := range rows {
		if f.Action == feedbackdomain.ActionWatched || f.RelevanceLabel == "watch_now" {
			m[f.LinkID] = true
		}
	}
	return m
}

// precisionAtK takes the top-k rankings (already ordered by final_score
// desc, then ranked_at desc), counts relevant ones, divides by
// min(k, |rankings|).
func precisionAtK(rankings []rankrepo.Ranking, relevant map[string]bool, k int) float64 {
	if len(rankings) == 0 {
		return 0
	}
	n := k
	if n > len(rankings) {
		n = len(rankings)
	}
	hits := 0
	for _, r := range rankings[:n] {
		if relevant[r.LinkID] {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

// coverage is |distinct ranked links in range| / |links extracted in
// range|; 0 if the denominator is 0.
func (h *Harness) coverage(userID string, from, to time.Time, rankings []rankrepo.Ranking) (float64, error) {
	extracted, err := h.links.CountExtractedInRange(userID, from, to)
	if err != nil {
		return 0, err
	}
	if extracted == 0 {
		return 0, nil
	}

	distinct := make(map[string]struct{}, len(rankings))
	for _, r := range rankings {
		distinct[r.LinkID] = struct{}{}
	}
	return float64(len(distinct)) / float64(extracted), nil
}

// novelty is |distinct channel-ids in rankings| / |rankings|.
func (h *Harness) novelty(rankings []rankrepo.Ranking) (float64, error) {
	if len(rankings) == 0 {
		return 0, nil
	}

	videoIDs := make([]string, 0, len(rankings))
	linkToVideo := make(map[string]string, len(rankings))
	for _, r := range rankings {
		if _, ok := linkToVideo[r.LinkID]; ok {
			continue
		}
		link, err := h.links.FindByID(r.LinkID)
		if err != nil {
			return 0, err
		}
		if link == nil {
			continue
		}
		linkToVideo[r.LinkID] = link.VideoID
		videoIDs = append(videoIDs, link.VideoID)
	}

	metadataRows, err := h.metadata.FindByIDs(videoIDs)
	if err != nil {
		return 0, err
	}
	channelByVideo := make(map[string]string, len(metadataRows))
	for _, m := range metadataRows {
		channelByVideo[m.VideoID] = m.ChannelID
	}

	channels := make(map[string]struct{})
	for _, r := range rankings {
		videoID := linkToVideo[r.LinkID]
		if channel, ok := channelByVideo[videoID]; ok && channel != "" {
			channels[channel] = struct{}{}
		}
	}
	return float64(len(channels)) / float64(len(rankings)), nil
}

// stability groups rankings by calendar day; for each adjacent day
// pair, computes the Jaccard similarity of the top-20 link-id sets and
// returns the mean over pairs. Fewer than two days of data returns 1.0.
func stability(rankings []rankrepo.Ranking) float64 {
	byDay := make(map[string][]rankrepo.Ranking)
	for _, r := range rankings {
		day := r.RankedAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], r)
	}
	if len(byDay) < 2 {
		return 1.0
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	var total float64
	var pairs int
	for i := 0; i+1 < len(days); i++ {
		s1 := topLinkIDs(byDay[days[i]], 20)
		s2 := topLinkIDs(byDay[days[i+1]], 20)
		total += jaccard(s1, s2)
		pairs++
	}
	if pairs == 0 {
		return 1.0
	}
	return total / float64(pairs)
}

func topLinkIDs(rankings []rankrepo.Ranking, limit int) map[string]struct{} {
	set := make(map[string]struct{})
	for i, r := range rankings {
		if i == limit {
			break
		}
		set[r.LinkID] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

