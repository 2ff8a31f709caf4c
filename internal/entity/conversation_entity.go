package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation tracks one lead's channel thread. The ConversationKey (the
// lead's phone number) is the unit of concurrency across the whole core.
type Conversation struct {
	Id              uuid.UUID
	ConversationKey string
	LeadName        string
	CrmLeadId       string
	LastInboundAt   *time.Time
	LastOutboundAt  *time.Time
	OptedOut        bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}
