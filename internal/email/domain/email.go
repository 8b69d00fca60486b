// Package domain holds the Email, Link, and SenderStats entities
// following a plain gorm-struct style, as in
// internal/email/domain.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringList mirrors user/domain.StringList — a JSON-encoded text
// column for label sets.
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

const previewSnippetMaxLen = 200

// Email is identity (user, external-message-id): never mutated after
// creation, and a retried Email Processor must not create a duplicate
// row.
type Email struct {
	ID                string     `gorm:"primaryKey"`
	UserID            string     `gorm:"uniqueIndex:idx_user_message;not null"`
	ExternalMessageID string     `gorm:"uniqueIndex:idx_user_message;not null"`
	ThreadID          string
	SenderAddress     string
	SenderDisplayName string
	Subject           string
	ReceivedAt        time.Time
	PreviewSnippet    string
	Labels            StringList `gorm:"type:text"`
	ThreadReplyCount  int
	CreatedAt         time.Time
}

func (Email) TableName() string { return "emails" }

// TruncatePreview clamps text to the stored preview length (<=200
// chars, truncated).
func TruncatePreview(text string) string {
	r := []rune(text)
	if len(r) <= previewSnippetMaxLen {
		return string(r)
	}
	return string(r[:previewSnippetMaxLen])
}

// Link is identity (user, email, video-id); is_duplicate is true iff the
// same (user, video-id) pair already existed before this row.
type Link struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex:idx_user_email_video;not null"`
	EmailID     string `gorm:"uniqueIndex:idx_user_email_video;not null"`
	VideoID     string `gorm:"uniqueIndex:idx_user_email_video;not null"`
	CanonicalURL string
	PlaylistID  string
	ExtractedAt time.Time
	IsDuplicate bool
}

func (Link) TableName() string { return "youtube_links" }

// SenderStats is identity (user, sender-address); email_count is
// monotonic non-decreasing, last_email_at is the max of contributing
// emails.
type SenderStats struct {
	UserID        string `gorm:"primaryKey"`
	SenderAddress string `gorm:"primaryKey"`
	EmailCount    int
	LastEmailAt   time.Time
	InContacts    bool
	UpdatedAt     time.Time
}

func (SenderStats) TableName() string { return "sender_stats" }
