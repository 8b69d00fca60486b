// Package domain holds Feedback — identity surrogate, append-only.
package domain

import "time"

type Action string

const (
	ActionWatched   Action = "watched"
	ActionSaved     Action = "saved"
	ActionSkipped   Action = "skipped"
	ActionDismissed Action = "dismissed"
)

type Feedback struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index:idx_user_provided_at"`
	LinkID      string `gorm:"index"`
	RankingID   string // optional reference to the Ranking that produced this feedback
	Action      Action
	RelevanceLabel string // optional, e.g. "watch_now" — used by the eval harness's relevance map
	ProvidedAt  time.Time `gorm:"index:idx_user_provided_at"`
}

func (Feedback) TableName() string { return "feedback" }
