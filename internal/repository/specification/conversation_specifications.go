package specification

import (
	"time"

	"gorm.io/gorm"
)

// ByConversationKey scopes any conversation-keyed table to one lead thread.
type ByConversationKey struct {
	Key string
}

func (s ByConversationKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_key = ?", s.Key)
}

// ByStatus filters follow-up tasks by lifecycle status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// DueBefore selects tasks whose scheduled time has passed.
type DueBefore struct {
	Time time.Time
}

func (s DueBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("scheduled_at <= ?", s.Time)
}
