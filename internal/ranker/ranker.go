// Package ranker implements the Ranker: weighted linear
// scoring, two-threshold classification, a deterministic explanation
// string, and curated topic tags.
package ranker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/inboxreel/inboxreel/internal/feature"
)

// Weights are the five configurable linear-combination weights.
type Weights struct {
	Sender       float64
	Thread       float64
	Freshness    float64
	Topic        float64
	NoisePenalty float64
}

// Thresholds are the two classification cutpoints.
type Thresholds struct {
	WatchNow float64
	Save     float64
}

const (
	ClassWatchNow = "watch_now"
	ClassSave     = "save"
	ClassSkip     = "skip"
)

// Score computes the weighted linear combination, clamped to [0,1].
func Score(w Weights, s feature.Scores) float64 {
	final := w.Sender*s.SenderScore + w.Thread*s.ThreadScore + w.Freshness*s.FreshnessScore +
		w.Topic*s.TopicMatchScore + w.NoisePenalty*s.NoisePenalty
	if final < 0 {
		return 0
	}
	if final > 1 {
		return 1
	}
	return final
}

// Classify applies the two thresholds.
func Classify(final float64, t Thresholds) string {
	switch {
	case final >= t.WatchNow:
		return ClassWatchNow
	case final >= t.Save:
		return ClassSave
	default:
		return ClassSkip
	}
}

// Explain produces the deterministic, human-readable reason list.
func Explain(s feature.Scores, classification string, final float64) string {
	var reasons []string
	if s.SenderScore > 0.7 {
		reasons = append(reasons, "from an important sender")
	}
	if s.ThreadScore > 0.5 {
		reasons = append(reasons, "part of an active thread")
	}
	if s.FreshnessScore > 0.7 {
		reasons = append(reasons, "recently published")
	}
	if s.TopicMatchScore > 0.5 {
		reasons = append(reasons, "matches your learning goals")
	}
	if s.NoisePenalty < 0.7 {
		reasons = append(reasons, "from a frequent sender")
	}

	if len(reasons) == 0 {
		return fmt.Sprintf("classified as %s with score %.2f", classification, final)
	}
	return strings.Join(reasons, "; ")
}

var topicVocabulary = map[string]struct{}{
	"golang": {}, "python": {}, "kubernetes": {}, "docker": {}, "react": {},
	"machine": {}, "learning": {}, "security": {}, "database": {}, "network": {},
	"cloud": {}, "algorithm": {}, "design": {}, "testing": {}, "performance": {},
	"concurrency": {}, "backend": {}, "frontend": {}, "tutorial": {}, "interview": {},
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// TopicTags tokenizes title on whitespace, retains curated-vocabulary
// tokens of length > 3, and caps the result at 5.
func TopicTags(title string) []string {
	tokens := strings.Fields(strings.ToLower(title))
	tags := make([]string, 0, 5)
	seen := make(map[string]struct{})

	for _, tok := range tokens {
		if len(tags) == 5 {
			break
		}
		cleaned := nonAlphanumeric.ReplaceAllString(tok, "")
		if len(cleaned) <= 3 {
			continue
		}
		if _, known := topicVocabulary[cleaned]; !known {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		tags = append(tags, cleaned)
	}
	return tags
}
