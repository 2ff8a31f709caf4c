package mapper

import (
	"encoding/json"
	"time"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		u := c.UpdatedAt
		updatedAt = &u
	}

	return &entity.Conversation{
		Id:              c.Id,
		ConversationKey: c.ConversationKey,
		LeadName:        c.LeadName,
		CrmLeadId:       c.CrmLeadId,
		LastInboundAt:   c.LastInboundAt,
		LastOutboundAt:  c.LastOutboundAt,
		OptedOut:        c.OptedOut,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *ConversationMapper) ToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	out := &model.Conversation{
		Id:              c.Id,
		ConversationKey: c.ConversationKey,
		LeadName:        c.LeadName,
		CrmLeadId:       c.CrmLeadId,
		LastInboundAt:   c.LastInboundAt,
		LastOutboundAt:  c.LastOutboundAt,
		OptedOut:        c.OptedOut,
		CreatedAt:       c.CreatedAt,
	}
	if c.UpdatedAt != nil {
		out.UpdatedAt = *c.UpdatedAt
	}
	return out
}

// MessageLog mapping lives here too; it shares the conversation domain.

func (m *ConversationMapper) MessageLogToEntity(l *model.MessageLog) *entity.MessageLog {
	if l == nil {
		return nil
	}

	var metadata map[string]interface{}
	if len(l.Metadata) > 0 {
		_ = json.Unmarshal(l.Metadata, &metadata)
	}

	return &entity.MessageLog{
		Id:              l.Id,
		ConversationKey: l.ConversationKey,
		Direction:       entity.MessageDirection(l.Direction),
		Kind:            l.Kind,
		Body:            l.Body,
		Metadata:        metadata,
		CreatedAt:       l.CreatedAt,
	}
}

func (m *ConversationMapper) MessageLogToModel(l *entity.MessageLog) *model.MessageLog {
	if l == nil {
		return nil
	}

	var metadata datatypes.JSON
	if l.Metadata != nil {
		if raw, err := json.Marshal(l.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.MessageLog{
		Id:              l.Id,
		ConversationKey: l.ConversationKey,
		Direction:       string(l.Direction),
		Kind:            l.Kind,
		Body:            l.Body,
		Metadata:        metadata,
		CreatedAt:       l.CreatedAt,
	}
}
