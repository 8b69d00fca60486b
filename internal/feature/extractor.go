// Package feature computes the five normalized feature scores the
// Ranker combines. Every computation here is pure given
// its inputs — the extractor's only I/O is the caller's point read of
// SenderStats.
package feature

import (
	"math"
	"strings"
	"time"
)

// Context carries everything the scoring formula needs for one link.
type Context struct {
	SenderKnown      bool
	SenderEmailCount int
	SenderInContacts bool
	DaysSinceLastEmail float64

	ThreadReplyCount int

	ReceivedAt  time.Time
	PublishedAt time.Time

	Title           string
	Description     string
	LearningGoals   []string

	FreshnessHalfLifeDays float64
}

// Scores holds the five independent [0,1] feature scores.
type Scores struct {
	SenderScore      float64
	ThreadScore      float64
	FreshnessScore   float64
	TopicMatchScore  float64
	NoisePenalty     float64
}

const unknownSenderScore = 0.1
const unknownSenderNoisePenalty = 1.0

// Extract computes all five scores from ctx.
func Extract(ctx Context) Scores {
	return Scores{
		SenderScore:     senderScore(ctx),
		ThreadScore:     threadScore(ctx.ThreadReplyCount),
		FreshnessScore:  freshnessScore(ctx),
		TopicMatchScore: topicMatchScore(ctx),
		NoisePenalty:    noisePenalty(ctx),
	}
}

func senderScore(ctx Context) float64 {
	if !ctx.SenderKnown {
		return unknownSenderScore
	}
	normLog := math.Log(float64(ctx.SenderEmailCount)+1) / math.Log(1001)
	if normLog > 1 {
		normLog = 1
	}
	recency := math.Exp(-ctx.DaysSinceLastEmail / 30)
	contactsBoost := 1.0
	if ctx.SenderInContacts {
		contactsBoost = 1.5
	}
	score := normLog * recency * contactsBoost
	return math.Min(1, score)
}

func threadScore(replyCount int) float64 {
	return math.Min(float64(replyCount)/3, 1)
}

func freshnessScore(ctx Context) float64 {
	halfLife := ctx.FreshnessHalfLifeDays
	if halfLife <= 0 {
		halfLife = 30
	}
	daysSincePublish := ctx.ReceivedAt.Sub(ctx.PublishedAt).Hours() / 24
	return math.Min(1, math.Exp(-daysSincePublish/halfLife))
}

func topicMatchScore(ctx Context) float64 {
	if len(ctx.LearningGoals) == 0 {
		return 0.5
	}
	haystack := strings.ToLower(ctx.Title + " " + ctx.Description)
	matches := 0
	for _, goal := range ctx.LearningGoals {
		if strings.Contains(haystack, strings.ToLower(goal)) {
			matches++
		}
	}
	return float64(matches) / float64(len(ctx.LearningGoals))
}

func noisePenalty(ctx Context) float64 {
	if !ctx.SenderKnown {
		return unknownSenderNoisePenalty
	}
	return 1 - math.Min(float64(ctx.SenderEmailCount)/100, 0.5)
}
