// Package buffer merges rapid-fire inbound fragments from one conversation
// into a single logical turn before it reaches the reasoning engine.
package buffer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/pkg/cache"
	"leadpilot-be/pkg/clock"
)

type Config struct {
	// QuietPeriod is the inactivity window after which a window auto-flushes.
	QuietPeriod time.Duration
	// MaxFragments bounds worst-case latency for someone typing indefinitely:
	// reaching it forces an immediate flush.
	MaxFragments int
	// SnapshotTTL is the expiry of the window mirror kept in the shared cache.
	SnapshotTTL time.Duration
}

// FlushHandler receives turns produced by the quiet-period timer. Cap-forced
// and degraded-mode turns are returned synchronously from Append instead.
type FlushHandler func(turn ConsolidatedTurn)

type Buffer struct {
	cfg     Config
	clk     clock.Clock
	store   cache.Store // optional window mirror; may be nil
	log     logger.ILogger
	handler FlushHandler

	mu      sync.Mutex // guards the windows map only
	windows map[string]*window
}

type window struct {
	mu             sync.Mutex
	fragments      []Fragment
	openedAt       time.Time
	lastFragmentAt time.Time
	timer          clock.Timer
	flushed        bool
}

type Status struct {
	FragmentCount int           `json:"fragment_count"`
	OpenedAt      time.Time     `json:"opened_at"`
	Age           time.Duration `json:"age_ms"`
}

func New(cfg Config, clk clock.Clock, store cache.Store, log logger.ILogger) *Buffer {
	return &Buffer{
		cfg:     cfg,
		clk:     clk,
		store:   store,
		log:     log,
		windows: make(map[string]*window),
	}
}

// OnFlush registers the handler invoked for timer-driven flushes. Must be
// called before the first Append.
func (b *Buffer) OnFlush(h FlushHandler) {
	b.handler = h
}

// Append adds a fragment to the conversation's window, resetting the quiet
// period. It returns a non-nil turn when the append itself forced a flush:
// either the fragment cap was hit, or the shared cache is unreachable and the
// buffer degrades to immediate per-fragment delivery.
func (b *Buffer) Append(ctx context.Context, key string, frag Fragment) *ConsolidatedTurn {
	w := b.acquireWindow(key)
	defer w.mu.Unlock()

	now := b.clk.Now()
	if frag.ReceivedAt.IsZero() {
		frag.ReceivedAt = now
	}
	if len(w.fragments) == 0 {
		w.openedAt = now
	}
	w.fragments = append(w.fragments, frag)
	w.lastFragmentAt = now

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	if len(w.fragments) >= b.cfg.MaxFragments {
		turn := b.drainLocked(ctx, key, w, now)
		return &turn
	}

	if !b.mirrorWindow(ctx, key, w) {
		b.log.Warn("Buffer", "Cache unreachable, degrading to per-fragment delivery", map[string]interface{}{
			"conversation_key": key,
		})
		turn := b.drainLocked(ctx, key, w, now)
		return &turn
	}

	w.timer = b.clk.After(b.cfg.QuietPeriod, func() {
		b.flushExpired(key)
	})

	return nil
}

// Flush atomically drains the window into one consolidated turn. Returns nil
// if no window exists, which makes a double flush (timer racing a manual
// flush) a safe no-op.
func (b *Buffer) Flush(ctx context.Context, key string) *ConsolidatedTurn {
	b.mu.Lock()
	w, ok := b.windows[key]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flushed || len(w.fragments) == 0 {
		return nil
	}

	turn := b.drainLocked(ctx, key, w, b.clk.Now())
	return &turn
}

// ForceFlush is Flush callable synchronously by the orchestrator, e.g. on an
// explicit "send now" signal. Exactly one of a concurrent force-flush and
// timer flush wins; the loser observes an empty window.
func (b *Buffer) ForceFlush(ctx context.Context, key string) *ConsolidatedTurn {
	return b.Flush(ctx, key)
}

// Status reports the window state for diagnostics. Never mutates.
func (b *Buffer) Status(key string) (Status, bool) {
	b.mu.Lock()
	w, ok := b.windows[key]
	b.mu.Unlock()
	if !ok {
		return Status{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.flushed || len(w.fragments) == 0 {
		return Status{}, false
	}
	return Status{
		FragmentCount: len(w.fragments),
		OpenedAt:      w.openedAt,
		Age:           b.clk.Now().Sub(w.openedAt),
	}, true
}

// acquireWindow returns the live window for the key with its mutex held,
// creating it if absent. Retries when it loses the race against a concurrent
// flush that removed the window.
func (b *Buffer) acquireWindow(key string) *window {
	for {
		b.mu.Lock()
		w, ok := b.windows[key]
		if !ok {
			w = &window{}
			b.windows[key] = w
		}
		b.mu.Unlock()

		w.mu.Lock()
		if w.flushed {
			w.mu.Unlock()
			continue
		}
		return w
	}
}

// drainLocked empties the window and removes it. Caller holds w.mu.
func (b *Buffer) drainLocked(ctx context.Context, key string, w *window, now time.Time) ConsolidatedTurn {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.flushed = true

	b.mu.Lock()
	delete(b.windows, key)
	b.mu.Unlock()

	if b.store != nil {
		if err := b.store.Delete(ctx, snapshotKey(key)); err != nil {
			b.log.Debug("Buffer", "Failed to drop window snapshot", map[string]interface{}{
				"conversation_key": key, "error": err.Error(),
			})
		}
	}

	turn := ConsolidatedTurn{
		ConversationKey: key,
		Fragments:       w.fragments,
		OpenedAt:        w.openedAt,
		FlushedAt:       now,
	}
	w.fragments = nil
	return turn
}

// mirrorWindow writes the window snapshot to the shared cache. Returns false
// only when the cache is unreachable.
func (b *Buffer) mirrorWindow(ctx context.Context, key string, w *window) bool {
	if b.store == nil {
		return true
	}

	snap, err := json.Marshal(w.fragments)
	if err != nil {
		return true
	}
	if err := b.store.Set(ctx, snapshotKey(key), snap, b.cfg.SnapshotTTL); err != nil {
		return !errors.Is(err, cache.ErrUnavailable)
	}
	return true
}

func (b *Buffer) flushExpired(key string) {
	turn := b.Flush(context.Background(), key)
	if turn == nil {
		return
	}
	if b.handler == nil {
		b.log.Error("Buffer", "Flush handler not registered, dropping turn", map[string]interface{}{
			"conversation_key": key,
		})
		return
	}
	b.handler(*turn)
}

func snapshotKey(key string) string {
	return "buffer:window:" + key
}
