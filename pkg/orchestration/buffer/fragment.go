package buffer

import (
	"strings"
	"time"
)

type FragmentKind string

const (
	FragmentText  FragmentKind = "text"
	FragmentMedia FragmentKind = "media"
)

// Fragment is one raw inbound message piece. Media arrives as a typed
// placeholder; the reasoning engine never sees raw bytes.
type Fragment struct {
	Kind       FragmentKind `json:"kind"`
	Text       string       `json:"text,omitempty"`
	MediaType  string       `json:"media_type,omitempty"`
	MediaRef   string       `json:"media_ref,omitempty"`
	ReceivedAt time.Time    `json:"received_at"`
}

// Render returns the fragment's contribution to the consolidated text.
func (f Fragment) Render() string {
	if f.Kind == FragmentMedia {
		return "[" + f.MediaType + "]"
	}
	return f.Text
}

// ConsolidatedTurn is the atomic unit handed to the reasoning engine: every
// fragment of one burst, in arrival order.
type ConsolidatedTurn struct {
	ConversationKey string     `json:"conversation_key"`
	Fragments       []Fragment `json:"fragments"`
	OpenedAt        time.Time  `json:"opened_at"`
	FlushedAt       time.Time  `json:"flushed_at"`
}

// Text joins the fragments with a single space, preserving order.
func (t ConsolidatedTurn) Text() string {
	parts := make([]string, 0, len(t.Fragments))
	for _, f := range t.Fragments {
		if rendered := f.Render(); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	return strings.Join(parts, " ")
}
