package dto

import (
	"time"

	"github.com/google/uuid"
)

type BufferStatusResponse struct {
	ConversationKey string     `json:"conversation_key"`
	Open            bool       `json:"open"`
	FragmentCount   int        `json:"fragment_count"`
	OpenedAt        *time.Time `json:"opened_at,omitempty"`
	AgeMs           int64      `json:"age_ms"`
}

type PauseRequest struct {
	DurationMinutes int `json:"duration_minutes" validate:"omitempty,min=1"`
}

type PauseResponse struct {
	ConversationKey string `json:"conversation_key"`
	Paused          bool   `json:"paused"`
}

type FollowUpTaskResponse struct {
	Id              uuid.UUID  `json:"id"`
	ConversationKey string     `json:"conversation_key"`
	AttemptNumber   int        `json:"attempt_number"`
	Type            string     `json:"type"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	Status          string     `json:"status"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
}
