package dto

import "time"

// InboundMessageRequest is the gateway webhook payload for one lead message
// fragment. Phone doubles as the conversation key.
type InboundMessageRequest struct {
	Phone     string `json:"phone" validate:"required"`
	Kind      string `json:"kind" validate:"required,oneof=text media"`
	Text      string `json:"text" validate:"required_if=Kind text"`
	MediaType string `json:"media_type" validate:"required_if=Kind media"`
	MediaRef  string `json:"media_ref,omitempty"`
	LeadName  string `json:"lead_name,omitempty"`
}

// InboundFragmentMessage is the bus payload the webhook controller publishes
// and the orchestrator consumer unmarshals.
type InboundFragmentMessage struct {
	ConversationKey string    `json:"conversation_key"`
	Kind            string    `json:"kind"`
	Text            string    `json:"text,omitempty"`
	MediaType       string    `json:"media_type,omitempty"`
	MediaRef        string    `json:"media_ref,omitempty"`
	LeadName        string    `json:"lead_name,omitempty"`
	ReceivedAt      time.Time `json:"received_at"`
}

// CrmEventRequest is the CRM webhook payload. note_added events carry the
// author; stage_changed events carry the new pipeline status id.
type CrmEventRequest struct {
	Phone     string `json:"phone" validate:"required"`
	EventType string `json:"event_type" validate:"required,oneof=note_added stage_changed"`
	AuthorId  string `json:"author_id,omitempty"`
	StatusId  int    `json:"status_id,omitempty"`
}

type WebhookAcceptedResponse struct {
	ConversationKey string `json:"conversation_key"`
	Accepted        bool   `json:"accepted"`
}
