package pacer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadpilot-be/pkg/clock"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type recordedCall struct {
	kind string // "typing" | "send"
	at   time.Time
}

type fakeMessenger struct {
	mu        sync.Mutex
	calls     []recordedCall
	typingErr error
	sendErr   error
}

func (m *fakeMessenger) SendTyping(ctx context.Context, key string, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{kind: "typing", at: time.Now()})
	return m.typingErr
}

func (m *fakeMessenger) SendMessage(ctx context.Context, key, payload string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedCall{kind: "send", at: time.Now()})
	if m.sendErr != nil {
		return "", m.sendErr
	}
	return "msg-001", nil
}

func (m *fakeMessenger) recorded() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func testConfig() Config {
	return Config{
		Min:            10 * time.Millisecond,
		Max:            80 * time.Millisecond,
		Short:          20 * time.Millisecond,
		Medium:         50 * time.Millisecond,
		Long:           100 * time.Millisecond, // clamped to Max
		ShortMaxRunes:  10,
		MediumMaxRunes: 40,
	}
}

func TestTypingDurationTiers(t *testing.T) {
	p := New(testConfig(), clock.NewSystem(), &fakeMessenger{}, nopLogger{})

	tests := []struct {
		name    string
		payload string
		want    time.Duration
	}{
		{"short", "ok!", 20 * time.Millisecond},
		{"medium", "this is a medium sized reply here", 50 * time.Millisecond},
		{"long clamped to max", "this reply is long enough to cross the medium boundary easily", 80 * time.Millisecond},
		{"empty still short", "", 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.TypingDuration(tt.payload))
		})
	}
}

func TestTypingDurationCountsRunesNotBytes(t *testing.T) {
	p := New(testConfig(), clock.NewSystem(), &fakeMessenger{}, nopLogger{})

	// 4 runes, 16 bytes: must still classify as short
	assert.Equal(t, 20*time.Millisecond, p.TypingDuration("🙂🙂🙂🙂"))
}

func TestSendNeverPrecedesTypingWait(t *testing.T) {
	messenger := &fakeMessenger{}
	p := New(testConfig(), clock.NewSystem(), messenger, nopLogger{})

	result, err := p.Send(context.Background(), "lead-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "msg-001", result.MessageID)
	assert.Equal(t, 20*time.Millisecond, result.TypingDuration)

	calls := messenger.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "typing", calls[0].kind)
	assert.Equal(t, "send", calls[1].kind)
	assert.GreaterOrEqual(t, calls[1].at.Sub(calls[0].at), 20*time.Millisecond)
}

func TestTypingIndicatorFailureDoesNotBlockDelivery(t *testing.T) {
	messenger := &fakeMessenger{typingErr: errors.New("gateway hiccup")}
	p := New(testConfig(), clock.NewSystem(), messenger, nopLogger{})

	result, err := p.Send(context.Background(), "lead-1", "hi")
	require.NoError(t, err)
	assert.Equal(t, "msg-001", result.MessageID)
}

func TestSendFailureIsReturned(t *testing.T) {
	messenger := &fakeMessenger{sendErr: errors.New("gateway down")}
	p := New(testConfig(), clock.NewSystem(), messenger, nopLogger{})

	_, err := p.Send(context.Background(), "lead-1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")
}

func TestSendsForSameConversationSerialize(t *testing.T) {
	messenger := &fakeMessenger{}
	p := New(testConfig(), clock.NewSystem(), messenger, nopLogger{})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Send(context.Background(), "lead-1", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Serialized sends never interleave: strict typing/send alternation
	calls := messenger.recorded()
	require.Len(t, calls, 6)
	for i, call := range calls {
		if i%2 == 0 {
			assert.Equal(t, "typing", call.kind)
		} else {
			assert.Equal(t, "send", call.kind)
		}
	}
}

func TestStateSequenceRejectsSkips(t *testing.T) {
	seq := newSendSequence()
	require.NoError(t, seq.to(stateTypingSignalSent))

	// Jumping straight to sending without the wait is a programming error
	assert.Error(t, seq.to(stateSending))

	require.NoError(t, seq.to(stateWaiting))
	require.NoError(t, seq.to(stateSending))
	require.NoError(t, seq.to(stateDone))

	// Terminal states accept no transitions
	assert.Error(t, seq.to(stateFailed))
}
