package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type FollowUpTask struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationKey string         `gorm:"type:varchar(32);not null;index:idx_followups_key_status,priority:1"`
	AttemptNumber   int            `gorm:"not null;default:1"`
	Type            string         `gorm:"type:varchar(50);not null;default:'reengagement'"`
	ScheduledAt     time.Time      `gorm:"not null;index:idx_followups_due"`
	Status          string         `gorm:"type:varchar(20);not null;index:idx_followups_key_status,priority:2"`
	Metadata        datatypes.JSON `gorm:"type:jsonb"`
	SentAt          *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (FollowUpTask) TableName() string {
	return "follow_up_tasks"
}
