package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "in"
	DirectionOutbound MessageDirection = "out"
)

// MessageLog is the audit trail: consolidated inbound turns and every
// outbound send, in delivery order.
type MessageLog struct {
	Id              uuid.UUID
	ConversationKey string
	Direction       MessageDirection
	Kind            string
	Body            string
	Metadata        map[string]interface{}
	CreatedAt       time.Time
}
