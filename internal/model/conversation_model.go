package model

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ConversationKey string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	LeadName        string    `gorm:"type:varchar(200)"`
	CrmLeadId       string    `gorm:"type:varchar(50);index"`
	LastInboundAt   *time.Time
	LastOutboundAt  *time.Time
	OptedOut        bool      `gorm:"default:false"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Conversation) TableName() string {
	return "conversations"
}
