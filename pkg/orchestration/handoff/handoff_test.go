package handoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leadpilot-be/pkg/cache"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/crm"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrUnavailable
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrUnavailable
}
func (brokenStore) Delete(context.Context, string) error { return cache.ErrUnavailable }

type stubCRM struct {
	stage crm.StageClassification
	err   error
}

func (s stubCRM) StageOf(context.Context, string) (crm.StageClassification, error) {
	return s.stage, s.err
}

func TestPauseLifecycle(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	m := NewMachine(cache.NewMemoryStore(), stubCRM{stage: crm.StageOpen}, clk, nopLogger{})
	ctx := context.Background()

	assert.False(t, m.IsPaused(ctx, "lead-1"))
	assert.True(t, m.AllowAutomation(ctx, "lead-1"))

	assert.True(t, m.BeginPause(ctx, "lead-1", 24*time.Hour))
	assert.True(t, m.IsPaused(ctx, "lead-1"))
	assert.False(t, m.AllowAutomation(ctx, "lead-1"))

	// Other conversations are unaffected
	assert.True(t, m.AllowAutomation(ctx, "lead-2"))

	assert.True(t, m.ClearPause(ctx, "lead-1"))
	assert.True(t, m.AllowAutomation(ctx, "lead-1"))
}

func TestPauseExpires(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	m := NewMachine(cache.NewMemoryStore(), stubCRM{stage: crm.StageOpen}, clk, nopLogger{})
	ctx := context.Background()

	m.BeginPause(ctx, "lead-1", time.Hour)
	clk.Advance(59 * time.Minute)
	assert.True(t, m.IsPaused(ctx, "lead-1"))

	clk.Advance(2 * time.Minute)
	assert.False(t, m.IsPaused(ctx, "lead-1"))
}

func TestCacheOutageFailsOpen(t *testing.T) {
	clk := clock.NewFake(time.Now())
	m := NewMachine(brokenStore{}, stubCRM{stage: crm.StageOpen}, clk, nopLogger{})
	ctx := context.Background()

	// The pause cannot be guaranteed and the caller is told so
	assert.False(t, m.BeginPause(ctx, "lead-1", time.Hour))

	// Reads fail open toward automation
	assert.False(t, m.IsPaused(ctx, "lead-1"))
	assert.True(t, m.AllowAutomation(ctx, "lead-1"))
}

func TestBlockingStageSuppressesAutomation(t *testing.T) {
	clk := clock.NewFake(time.Now())
	ctx := context.Background()

	for _, stage := range []crm.StageClassification{
		crm.StageHumanAttention,
		crm.StageNotInterested,
		crm.StageMeetingLocked,
	} {
		m := NewMachine(cache.NewMemoryStore(), stubCRM{stage: stage}, clk, nopLogger{})
		assert.True(t, m.IsBlockedByStage(ctx, "lead-1"), string(stage))
		assert.False(t, m.AllowAutomation(ctx, "lead-1"), string(stage))
	}
}

func TestStageLookupFailureIsNonBlocking(t *testing.T) {
	clk := clock.NewFake(time.Now())
	m := NewMachine(cache.NewMemoryStore(), stubCRM{err: errors.New("crm timeout")}, clk, nopLogger{})
	ctx := context.Background()

	assert.False(t, m.IsBlockedByStage(ctx, "lead-1"))
	assert.True(t, m.AllowAutomation(ctx, "lead-1"))
}

func TestStageBlockIndependentOfPauseCache(t *testing.T) {
	clk := clock.NewFake(time.Now())
	// Cache down AND blocking stage: the stage check still wins
	m := NewMachine(brokenStore{}, stubCRM{stage: crm.StageMeetingLocked}, clk, nopLogger{})

	assert.False(t, m.AllowAutomation(context.Background(), "lead-1"))
}
