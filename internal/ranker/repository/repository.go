// Package repository persists Ranking rows: identity (user, link,
// ranked-at), never deleted — history is required for the Evaluation
// Harness's stability metric.
package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ranking is one scored-and-classified pass over a Link for a user.
type Ranking struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"uniqueIndex:idx_user_link_ranked;not null"`
	LinkID         string `gorm:"uniqueIndex:idx_user_link_ranked;not null"`
	// RankedAt is truncated to the second before use — the uniqueness
	// constraint is keyed on same-second granularity.
	RankedAt         time.Time `gorm:"uniqueIndex:idx_user_link_ranked;not null"`
	SenderScore      float64
	ThreadScore      float64
	FreshnessScore   float64
	TopicMatchScore  float64
	NoisePenalty     float64
	FinalScore       float64
	Classification   string
	Explanation      string
	TopicTags        string // comma-joined; small curated set, no need for a JSON column
}

func (Ranking) TableName() string { return "rankings" }

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	db.AutoMigrate(&Ranking{})
	return &Repository{db: db}
}

// Upsert inserts one Ranking row, updating score/classification/
// explanation/tags in place on conflict with an existing
// (user, link, ranked_at) row.
func (r *Repository) Upsert(ranking *Ranking) error {
	ranking.RankedAt = ranking.RankedAt.Truncate(time.Second)
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "link_id"}, {Name: "ranked_at"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"sender_score", "thread_score", "freshness_score", "topic_match_score",
			"noise_penalty", "final_score", "classification", "explanation", "topic_tags",
		}),
	}).Create(ranking).Error
}

// ListInRange returns every Ranking for user within [from, to), ordered
// by final_score desc then ranked_at desc — the order the Evaluation
// Harness's precision@k consumes.
func (r *Repository) ListInRange(userID string, from, to time.Time) ([]Ranking, error) {
	var rows []Ranking
	err := r.db.Where("user_id = ? AND ranked_at >= ? AND ranked_at < ?", userID, from, to).
		Order("final_score DESC, ranked_at DESC").
		Find(&rows).Error
	return rows, err
}
