package mapper

import (
	"encoding/json"
	"time"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/model"

	"gorm.io/datatypes"
)

type FollowUpMapper struct{}

func NewFollowUpMapper() *FollowUpMapper {
	return &FollowUpMapper{}
}

func (m *FollowUpMapper) ToEntity(t *model.FollowUpTask) *entity.FollowUpTask {
	if t == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(t.Metadata) > 0 {
		_ = json.Unmarshal(t.Metadata, &metadata)
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	return &entity.FollowUpTask{
		Id:              t.Id,
		ConversationKey: t.ConversationKey,
		AttemptNumber:   t.AttemptNumber,
		Type:            t.Type,
		ScheduledAt:     t.ScheduledAt,
		Status:          entity.FollowUpStatus(t.Status),
		Metadata:        metadata,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       updatedAt,
		SentAt:          t.SentAt,
	}
}

func (m *FollowUpMapper) ToModel(t *entity.FollowUpTask) *model.FollowUpTask {
	if t == nil {
		return nil
	}

	var metadata datatypes.JSON
	if t.Metadata != nil {
		if raw, err := json.Marshal(t.Metadata); err == nil {
			metadata = raw
		}
	}

	out := &model.FollowUpTask{
		Id:              t.Id,
		ConversationKey: t.ConversationKey,
		AttemptNumber:   t.AttemptNumber,
		Type:            t.Type,
		ScheduledAt:     t.ScheduledAt,
		Status:          string(t.Status),
		Metadata:        metadata,
		SentAt:          t.SentAt,
		CreatedAt:       t.CreatedAt,
	}
	if t.UpdatedAt != nil {
		out.UpdatedAt = *t.UpdatedAt
	}
	return out
}
