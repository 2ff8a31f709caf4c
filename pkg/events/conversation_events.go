package events

import "time"

// Conversation lifecycle event codes published on the bus. Subjects become
// "events.<code>" on the stream; downstream dashboards key off these.
const (
	TypeReplySent         = "conversation.reply_sent"
	TypeHandoffPaused     = "conversation.handoff_paused"
	TypeHandoffResumed    = "conversation.handoff_resumed"
	TypeFollowUpFired     = "conversation.followup_fired"
	TypeFollowUpCancelled = "conversation.followup_cancelled"
	TypeLeadOptedOut      = "conversation.lead_opted_out"
)

func NewReplySent(conversationKey, messageID string, fragments int) Event {
	return BaseEvent{
		Type: TypeReplySent,
		Data: map[string]interface{}{
			"conversation_key": conversationKey,
			"message_id":       messageID,
			"fragments":        fragments,
		},
		OccurredAt: time.Now(),
	}
}

func NewHandoffPaused(conversationKey, reason string, until time.Time) Event {
	return BaseEvent{
		Type: TypeHandoffPaused,
		Data: map[string]interface{}{
			"conversation_key": conversationKey,
			"reason":           reason,
			"paused_until":     until,
		},
		OccurredAt: time.Now(),
	}
}

func NewHandoffResumed(conversationKey string) Event {
	return BaseEvent{
		Type:       TypeHandoffResumed,
		Data:       map[string]interface{}{"conversation_key": conversationKey},
		OccurredAt: time.Now(),
	}
}

func NewFollowUpFired(conversationKey string, attempt int) Event {
	return BaseEvent{
		Type: TypeFollowUpFired,
		Data: map[string]interface{}{
			"conversation_key": conversationKey,
			"attempt":          attempt,
		},
		OccurredAt: time.Now(),
	}
}

func NewFollowUpCancelled(conversationKey, reason string) Event {
	return BaseEvent{
		Type: TypeFollowUpCancelled,
		Data: map[string]interface{}{
			"conversation_key": conversationKey,
			"reason":           reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewLeadOptedOut(conversationKey string) Event {
	return BaseEvent{
		Type:       TypeLeadOptedOut,
		Data:       map[string]interface{}{"conversation_key": conversationKey},
		OccurredAt: time.Now(),
	}
}
