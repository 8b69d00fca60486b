// Package domain holds the User entity: identity, credential material,
// the inbox change cursor, and per-user preferences.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringList is a JSON-encoded text column storing an ordered string
// list in a single database column.
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

// User is the account that owns an inbox, a change cursor, and a
// preference set. Created on first successful authorization; the change
// cursor is mutated only by the Inbox Synchronizer.
// LearningGoals is the ordered keyword list the Feature Extractor's
// TopicMatchScore consumes.
type User struct {
	ID                     string     `json:"id" gorm:"primaryKey"`
	ExternalAccountAddress string     `json:"external_account_address" gorm:"uniqueIndex;not null"`
	EncryptedAccessToken   string     `json:"-" gorm:"type:text"`
	EncryptedRefreshToken  string     `json:"-" gorm:"type:text"`
	ChangeCursor           string     `json:"change_cursor" gorm:"column:change_cursor"`
	NeedsReauthorization   bool       `json:"needs_reauthorization" gorm:"default:false"`
	LearningGoals          StringList `json:"learning_goals" gorm:"column:learning_goals;type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// HasCursor reports whether the user has synced before — if false, the
// Inbox Synchronizer performs a bounded initial sync instead of a delta.
func (u *User) HasCursor() bool {
	return u.ChangeCursor != ""
}
