package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot-be/pkg/cache"
	"leadpilot-be/pkg/clock"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

// brokenStore simulates an unreachable shared cache.
type brokenStore struct{}

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, cache.ErrUnavailable
}
func (brokenStore) Set(context.Context, string, []byte, time.Duration) error {
	return cache.ErrUnavailable
}
func (brokenStore) Delete(context.Context, string) error { return cache.ErrUnavailable }

func newTestBuffer(clk clock.Clock, store cache.Store) *Buffer {
	return New(Config{
		QuietPeriod:  8 * time.Second,
		MaxFragments: 5,
		SnapshotTTL:  10 * time.Minute,
	}, clk, store, nopLogger{})
}

func textFragment(text string) Fragment {
	return Fragment{Kind: FragmentText, Text: text}
}

func TestQuietPeriodConsolidatesBurst(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	buf := newTestBuffer(clk, cache.NewMemoryStore())

	var turns []ConsolidatedTurn
	buf.OnFlush(func(turn ConsolidatedTurn) { turns = append(turns, turn) })

	ctx := context.Background()
	assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("hi")))
	clk.Advance(2 * time.Second)
	assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("i want")))
	clk.Advance(2 * time.Second)
	assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("the pro plan")))

	// Quiet period counts from the last fragment
	clk.Advance(7 * time.Second)
	assert.Empty(t, turns)

	clk.Advance(1 * time.Second)
	require.Len(t, turns, 1)
	assert.Equal(t, "lead-1", turns[0].ConversationKey)
	assert.Equal(t, "hi i want the pro plan", turns[0].Text())
	assert.Len(t, turns[0].Fragments, 3)
}

func TestAppendResetsQuietPeriod(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())

	flushes := 0
	buf.OnFlush(func(ConsolidatedTurn) { flushes++ })

	ctx := context.Background()
	buf.Append(ctx, "lead-1", textFragment("a"))
	clk.Advance(7 * time.Second)
	buf.Append(ctx, "lead-1", textFragment("b"))
	clk.Advance(7 * time.Second)
	assert.Equal(t, 0, flushes)

	clk.Advance(1 * time.Second)
	assert.Equal(t, 1, flushes)
}

func TestFragmentCapForcesImmediateFlush(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())
	buf.OnFlush(func(ConsolidatedTurn) { t.Fatal("cap flush must return synchronously") })

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("x")))
	}
	turn := buf.Append(ctx, "lead-1", textFragment("x"))
	require.NotNil(t, turn)
	assert.Len(t, turn.Fragments, 5)

	// The timer must be dead: nothing fires later
	clk.Advance(time.Minute)
}

func TestDoubleFlushIsIdempotent(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())
	buf.OnFlush(func(ConsolidatedTurn) {})

	ctx := context.Background()
	buf.Append(ctx, "lead-1", textFragment("hello"))

	first := buf.ForceFlush(ctx, "lead-1")
	require.NotNil(t, first)
	assert.Equal(t, "hello", first.Text())

	assert.Nil(t, buf.ForceFlush(ctx, "lead-1"))
	assert.Nil(t, buf.Flush(ctx, "lead-1"))
}

func TestMediaFragmentsRenderAsPlaceholders(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())
	buf.OnFlush(func(ConsolidatedTurn) {})

	ctx := context.Background()
	buf.Append(ctx, "lead-1", textFragment("look at this"))
	buf.Append(ctx, "lead-1", Fragment{Kind: FragmentMedia, MediaType: "image", MediaRef: "media/123"})
	buf.Append(ctx, "lead-1", textFragment("can you do that?"))

	turn := buf.ForceFlush(ctx, "lead-1")
	require.NotNil(t, turn)
	assert.Equal(t, "look at this [image] can you do that?", turn.Text())
}

func TestCacheOutageDegradesToPerFragmentDelivery(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, brokenStore{})
	buf.OnFlush(func(ConsolidatedTurn) {})

	turn := buf.Append(context.Background(), "lead-1", textFragment("hi"))
	require.NotNil(t, turn)
	assert.Equal(t, "hi", turn.Text())
	assert.Len(t, turn.Fragments, 1)

	// No window survives the degraded flush
	_, open := buf.Status("lead-1")
	assert.False(t, open)
}

func TestNilStoreBuffersInMemory(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, nil)

	var turns []ConsolidatedTurn
	buf.OnFlush(func(turn ConsolidatedTurn) { turns = append(turns, turn) })

	ctx := context.Background()
	assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("a")))
	assert.Nil(t, buf.Append(ctx, "lead-1", textFragment("b")))

	clk.Advance(8 * time.Second)
	require.Len(t, turns, 1)
	assert.Equal(t, "a b", turns[0].Text())
}

func TestStatusReportsOpenWindow(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())
	buf.OnFlush(func(ConsolidatedTurn) {})

	ctx := context.Background()
	_, open := buf.Status("lead-1")
	assert.False(t, open)

	buf.Append(ctx, "lead-1", textFragment("a"))
	clk.Advance(3 * time.Second)
	buf.Append(ctx, "lead-1", textFragment("b"))

	status, open := buf.Status("lead-1")
	require.True(t, open)
	assert.Equal(t, 2, status.FragmentCount)
	assert.Equal(t, 3*time.Second, status.Age)
}

func TestConversationsBufferIndependently(t *testing.T) {
	clk := clock.NewFake(time.Now())
	buf := newTestBuffer(clk, cache.NewMemoryStore())

	var turns []ConsolidatedTurn
	buf.OnFlush(func(turn ConsolidatedTurn) { turns = append(turns, turn) })

	ctx := context.Background()
	buf.Append(ctx, "lead-1", textFragment("from one"))
	clk.Advance(4 * time.Second)
	buf.Append(ctx, "lead-2", textFragment("from two"))

	clk.Advance(4 * time.Second)
	require.Len(t, turns, 1)
	assert.Equal(t, "lead-1", turns[0].ConversationKey)

	clk.Advance(4 * time.Second)
	require.Len(t, turns, 2)
	assert.Equal(t, "lead-2", turns[1].ConversationKey)
}
