// Package reasoning produces the natural-language content of outbound
// messages. The orchestration core does not inspect or validate what comes
// back.
package reasoning

import (
	"context"
	"fmt"
)

// Engine is the narrow contract the orchestrator needs: one reply for a
// consolidated inbound turn, one re-engagement message for a follow-up.
type Engine interface {
	Reply(ctx context.Context, conversationKey, turnText string) (string, error)
	FollowUp(ctx context.Context, conversationKey string, attempt int) (string, error)
}

type llmEngine struct {
	provider     LLMProvider
	systemPrompt string
}

func NewEngine(provider LLMProvider, systemPrompt string) Engine {
	return &llmEngine{
		provider:     provider,
		systemPrompt: systemPrompt,
	}
}

func (e *llmEngine) Reply(ctx context.Context, conversationKey, turnText string) (string, error) {
	history := []Message{
		{Role: "system", Content: e.systemPrompt},
		{Role: "user", Content: turnText},
	}

	reply, err := e.provider.Chat(ctx, history, WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return reply, nil
}

func (e *llmEngine) FollowUp(ctx context.Context, conversationKey string, attempt int) (string, error) {
	prompt := fmt.Sprintf(
		"The lead has gone quiet. Write a short, casual re-engagement message. This is follow-up attempt %d; later attempts should be lighter and easier to ignore.",
		attempt,
	)
	history := []Message{
		{Role: "system", Content: e.systemPrompt},
		{Role: "user", Content: prompt},
	}

	msg, err := e.provider.Chat(ctx, history, WithTemperature(0.8))
	if err != nil {
		return "", fmt.Errorf("generate follow-up: %w", err)
	}
	return msg, nil
}
