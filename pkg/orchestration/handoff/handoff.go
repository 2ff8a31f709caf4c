// Package handoff is the authoritative gate deciding whether automation may
// reply to a conversation right now.
package handoff

import (
	"context"
	"encoding/json"
	"time"

	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/pkg/cache"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/crm"
)

// pauseRecord lives in the shared cache with a TTL equal to the remaining
// pause. Absence of the record means the conversation is not paused.
type pauseRecord struct {
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Machine struct {
	store cache.Store
	crm   crm.Client
	clk   clock.Clock
	log   logger.ILogger
}

func NewMachine(store cache.Store, crmClient crm.Client, clk clock.Clock, log logger.ILogger) *Machine {
	return &Machine{
		store: store,
		crm:   crmClient,
		clk:   clk,
		log:   log,
	}
}

// BeginPause suppresses automation for the duration, typically because a
// human operator acted on the conversation. Returns false when the cache is
// unavailable: the pause could not be guaranteed and automation continues.
func (m *Machine) BeginPause(ctx context.Context, conversationKey string, duration time.Duration) bool {
	record := pauseRecord{
		Active:    true,
		ExpiresAt: m.clk.Now().Add(duration),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return false
	}

	if err := m.store.Set(ctx, pauseKey(conversationKey), data, duration); err != nil {
		m.log.Warn("Handoff", "Could not persist pause, automation will continue", map[string]interface{}{
			"conversation_key": conversationKey, "error": err.Error(),
		})
		return false
	}

	m.log.Info("Handoff", "Conversation paused for human operator", map[string]interface{}{
		"conversation_key": conversationKey, "expires_at": record.ExpiresAt,
	})
	return true
}

// IsPaused reports whether an unexpired pause record exists. Cache outages
// fail open toward automation: a missed pause is recoverable by a human, a
// stuck agent is worse for the business.
func (m *Machine) IsPaused(ctx context.Context, conversationKey string) bool {
	data, found, err := m.store.Get(ctx, pauseKey(conversationKey))
	if err != nil {
		m.log.Warn("Handoff", "Cache unavailable, treating conversation as not paused", map[string]interface{}{
			"conversation_key": conversationKey, "error": err.Error(),
		})
		return false
	}
	if !found {
		return false
	}

	var record pauseRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return false
	}
	return record.Active && record.ExpiresAt.After(m.clk.Now())
}

// ClearPause removes the pause record. Idempotent.
func (m *Machine) ClearPause(ctx context.Context, conversationKey string) bool {
	if err := m.store.Delete(ctx, pauseKey(conversationKey)); err != nil {
		return false
	}
	return true
}

// IsBlockedByStage consults the CRM independently of the cache: a blocking
// pipeline stage suppresses automation even with the cache down. A failed
// lookup never bricks the conversation, but is logged loudly.
func (m *Machine) IsBlockedByStage(ctx context.Context, conversationKey string) bool {
	stage, err := m.crm.StageOf(ctx, conversationKey)
	if err != nil {
		m.log.Error("Handoff", "Pipeline stage lookup failed, treating as non-blocking", map[string]interface{}{
			"conversation_key": conversationKey, "error": err.Error(),
		})
		return false
	}
	return stage.BlocksAutomation()
}

// AllowAutomation is the gate consulted before every automated send: cheap
// cache check first, expensive CRM check second, short-circuiting.
func (m *Machine) AllowAutomation(ctx context.Context, conversationKey string) bool {
	if m.IsPaused(ctx, conversationKey) {
		return false
	}
	return !m.IsBlockedByStage(ctx, conversationKey)
}

func pauseKey(conversationKey string) string {
	return "handoff:pause:" + conversationKey
}
