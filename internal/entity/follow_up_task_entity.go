package entity

import (
	"time"

	"github.com/google/uuid"
)

type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpSent      FollowUpStatus = "sent"
	FollowUpCancelled FollowUpStatus = "cancelled"
	FollowUpFailed    FollowUpStatus = "failed"
)

// FollowUpTask is one scheduled re-engagement message. At most one pending
// task exists per conversation; scheduling a new one supersedes the old.
type FollowUpTask struct {
	Id              uuid.UUID
	ConversationKey string
	AttemptNumber   int
	Type            string
	ScheduledAt     time.Time
	Status          FollowUpStatus
	Metadata        map[string]interface{}
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	SentAt          *time.Time
}
