// Package crm reads the lead's sales-funnel position from the CRM. This core
// only consumes the stage classification; everything else about the CRM is
// out of scope.
package crm

import "context"

type StageClassification string

const (
	StageOpen           StageClassification = "open"
	StageHumanAttention StageClassification = "human-attention"
	StageNotInterested  StageClassification = "not-interested"
	StageMeetingLocked  StageClassification = "meeting-locked"
)

// BlocksAutomation reports whether this stage permanently suppresses
// automated replies. The classification is authoritative and independent of
// the pause cache.
func (s StageClassification) BlocksAutomation() bool {
	switch s {
	case StageHumanAttention, StageNotInterested, StageMeetingLocked:
		return true
	}
	return false
}

type Client interface {
	// StageOf returns the current classification for the lead behind the
	// conversation key. Unknown leads classify as open.
	StageOf(ctx context.Context, conversationKey string) (StageClassification, error)
}
