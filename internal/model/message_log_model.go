package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MessageLog struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationKey string         `gorm:"type:varchar(32);not null;index:idx_message_logs_key_created,priority:1"`
	Direction       string         `gorm:"type:varchar(3);not null"`
	Kind            string         `gorm:"type:varchar(20);not null;default:'text'"`
	Body            string         `gorm:"type:text;not null"`
	Metadata        datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index:idx_message_logs_key_created,priority:2"`
}

func (MessageLog) TableName() string {
	return "message_logs"
}
