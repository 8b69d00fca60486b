// Package domain holds VideoMetadata — identity = video-id, globally
// unique and shared across users.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringList mirrors the other domain packages' JSON-encoded text
// column for the description keyword list.
type StringList []string

func (a StringList) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

func (a *StringList) Scan(value interface{}) error {
	if value == nil {
		*a = []string{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil
	}
	if len(raw) == 0 {
		*a = []string{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// VideoMetadata is created by the Enrichment worker on cache miss,
// refreshed in-place, and never deleted by the core.
type VideoMetadata struct {
	VideoID             string `gorm:"primaryKey"`
	Title               string
	ChannelID           string
	ChannelTitle        string
	PublishedAt         time.Time
	DurationSeconds     int
	Category            string
	DescriptionKeywords StringList `gorm:"type:text"`
	ThumbnailURL        string
	ViewCount           uint64
	LikeCount           uint64
	FetchedAt           time.Time
}

func (VideoMetadata) TableName() string { return "video_metadata" }
