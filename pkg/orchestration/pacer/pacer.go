// Package pacer sequences an outbound reply behind a computed typing delay so
// delivery never races ahead of the typing indicator.
package pacer

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/orchestration/keylock"
	"leadpilot-be/pkg/transport"
)

type Config struct {
	Min time.Duration
	Max time.Duration

	Short  time.Duration
	Medium time.Duration
	Long   time.Duration

	ShortMaxRunes  int
	MediumMaxRunes int
}

// DeliveryResult describes one completed (or failed) outbound send.
type DeliveryResult struct {
	MessageID      string
	TypingDuration time.Duration
}

type Pacer struct {
	cfg       Config
	clk       clock.Clock
	messenger transport.Messenger
	log       logger.ILogger
	locks     *keylock.KeyMutex
}

func New(cfg Config, clk clock.Clock, messenger transport.Messenger, log logger.ILogger) *Pacer {
	return &Pacer{
		cfg:       cfg,
		clk:       clk,
		messenger: messenger,
		log:       log,
		locks:     keylock.New(),
	}
}

// TypingDuration computes how long the assistant pretends to type: tiered by
// payload length, clamped so short replies still feel intentional and long
// replies don't stall the conversation.
func (p *Pacer) TypingDuration(payload string) time.Duration {
	runes := utf8.RuneCountInString(payload)

	var d time.Duration
	switch {
	case runes <= p.cfg.ShortMaxRunes:
		d = p.cfg.Short
	case runes <= p.cfg.MediumMaxRunes:
		d = p.cfg.Medium
	default:
		d = p.cfg.Long
	}

	if d < p.cfg.Min {
		d = p.cfg.Min
	}
	if d > p.cfg.Max {
		d = p.cfg.Max
	}
	return d
}

// Send walks the Idle -> TypingSignalSent -> Waiting -> Sending -> Done|Failed
// sequence for one payload. Sends for the same conversation are serialized;
// different conversations run concurrently.
//
// The typing wait is not abandonable: once started it runs to completion even
// if ctx is cancelled, preserving the ordering guarantee.
func (p *Pacer) Send(ctx context.Context, conversationKey, payload string) (DeliveryResult, error) {
	unlock := p.locks.Lock(conversationKey)
	defer unlock()

	seq := newSendSequence()
	duration := p.TypingDuration(payload)

	if err := seq.to(stateTypingSignalSent); err != nil {
		return DeliveryResult{}, err
	}
	if err := p.messenger.SendTyping(ctx, conversationKey, duration); err != nil {
		// A missed typing indicator must never block delivery.
		p.log.Warn("Pacer", "Typing indicator failed", map[string]interface{}{
			"conversation_key": conversationKey, "error": err.Error(),
		})
	}

	if err := seq.to(stateWaiting); err != nil {
		return DeliveryResult{}, err
	}
	done := make(chan struct{})
	p.clk.After(duration, func() { close(done) })
	<-done

	if err := seq.to(stateSending); err != nil {
		return DeliveryResult{}, err
	}
	messageID, err := p.messenger.SendMessage(ctx, conversationKey, payload)
	if err != nil {
		_ = seq.to(stateFailed)
		return DeliveryResult{TypingDuration: duration}, fmt.Errorf("send message: %w", err)
	}

	_ = seq.to(stateDone)
	return DeliveryResult{MessageID: messageID, TypingDuration: duration}, nil
}
