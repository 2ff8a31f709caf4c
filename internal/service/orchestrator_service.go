package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"leadpilot-be/internal/dto"
	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/internal/repository/specification"
	"leadpilot-be/internal/repository/unitofwork"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/events"
	pktNats "leadpilot-be/pkg/nats"
	"leadpilot-be/pkg/orchestration/buffer"
	"leadpilot-be/pkg/orchestration/followup"
	"leadpilot-be/pkg/orchestration/handoff"
	"leadpilot-be/pkg/orchestration/keylock"
	"leadpilot-be/pkg/orchestration/pacer"
	"leadpilot-be/pkg/reasoning"
)

type IOrchestratorService interface {
	Consume(ctx context.Context) error
	HandleCrmEvent(ctx context.Context, req *dto.CrmEventRequest) error
	Pause(ctx context.Context, conversationKey string, duration time.Duration) error
	Resume(ctx context.Context, conversationKey string) error
	BufferStatus(conversationKey string) *dto.BufferStatusResponse
}

// OrchestratorConfig is the slice of runtime policy the orchestrator needs.
type OrchestratorConfig struct {
	PauseDuration  time.Duration
	OptOutKeywords []string
	BotUserId      string
}

type orchestratorService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	buf        *buffer.Buffer
	pace       *pacer.Pacer
	gate       *handoff.Machine
	engine     reasoning.Engine
	scheduler  *followup.Scheduler
	eventBus   *pktNats.Publisher
	locks      *keylock.KeyMutex
	clk        clock.Clock
	cfg        OrchestratorConfig
	log        logger.ILogger
}

func NewOrchestratorService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	buf *buffer.Buffer,
	pace *pacer.Pacer,
	gate *handoff.Machine,
	engine reasoning.Engine,
	scheduler *followup.Scheduler,
	eventBus *pktNats.Publisher,
	locks *keylock.KeyMutex,
	clk clock.Clock,
	cfg OrchestratorConfig,
	log logger.ILogger,
) IOrchestratorService {
	s := &orchestratorService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		buf:        buf,
		pace:       pace,
		gate:       gate,
		engine:     engine,
		scheduler:  scheduler,
		eventBus:   eventBus,
		locks:      locks,
		clk:        clk,
		cfg:        cfg,
		log:        log,
	}

	// Quiet-period expiries arrive from the buffer's timer goroutine; they
	// carry no request context.
	buf.OnFlush(func(turn buffer.ConsolidatedTurn) {
		s.handleTurn(context.Background(), &turn)
	})
	return s
}

func (s *orchestratorService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *orchestratorService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.InboundFragmentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.log.Error("Orchestrator", "Failed to unmarshal inbound fragment", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed, never retriable
		return
	}

	if err := s.handleInbound(ctx, &payload); err != nil {
		s.log.Error("Orchestrator", "Inbound fragment processing failed", map[string]interface{}{
			"conversation_key": payload.ConversationKey,
			"error":            err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (s *orchestratorService) handleInbound(ctx context.Context, payload *dto.InboundFragmentMessage) error {
	key := payload.ConversationKey
	now := s.clk.Now()

	if payload.Kind == string(buffer.FragmentText) && s.isOptOut(payload.Text) {
		return s.handleOptOut(ctx, key)
	}

	if err := s.upsertConversation(ctx, key, payload.LeadName, now); err != nil {
		return err
	}

	// An inbound reply supersedes any scheduled re-engagement.
	if cancelled, err := s.scheduler.Cancel(ctx, key); err != nil {
		s.log.Error("Orchestrator", "Failed to cancel follow-up on reply", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
	} else if cancelled {
		s.publishEvent(ctx, events.NewFollowUpCancelled(key, "lead_replied"))
	}

	frag := buffer.Fragment{
		Kind:       buffer.FragmentKind(payload.Kind),
		Text:       payload.Text,
		MediaType:  payload.MediaType,
		MediaRef:   payload.MediaRef,
		ReceivedAt: payload.ReceivedAt,
	}
	if frag.ReceivedAt.IsZero() {
		frag.ReceivedAt = now
	}

	// Cap-forced and cache-degraded flushes come back synchronously. The
	// reply pipeline waits out the full typing pace, so it runs on its own
	// goroutine to keep the consumer loop free for other conversations; the
	// per-key lock inside handleTurn preserves ordering within this one.
	// The quiet-period path arrives later through OnFlush.
	if turn := s.buf.Append(ctx, key, frag); turn != nil {
		go s.handleTurn(ctx, turn)
	}
	return nil
}

// handleTurn runs the full reply pipeline for one consolidated turn. The
// per-key lock serializes turns within a conversation while leaving other
// conversations untouched.
func (s *orchestratorService) handleTurn(ctx context.Context, turn *buffer.ConsolidatedTurn) {
	key := turn.ConversationKey
	unlock := s.locks.Lock(key)
	defer unlock()

	turnText := turn.Text()
	s.logMessage(ctx, key, entity.DirectionInbound, "turn", turnText, map[string]interface{}{
		"fragments": len(turn.Fragments),
	})

	if !s.gate.AllowAutomation(ctx, key) {
		s.log.Info("Orchestrator", "Automation suppressed for conversation", map[string]interface{}{
			"conversation_key": key,
		})
		return
	}

	reply, err := s.engine.Reply(ctx, key, turnText)
	if err != nil {
		s.log.Error("Orchestrator", "Reasoning engine failed", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
		return
	}

	result, err := s.pace.Send(ctx, key, reply)
	if err != nil {
		s.log.Error("Orchestrator", "Outbound delivery failed", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
		return
	}

	s.logMessage(ctx, key, entity.DirectionOutbound, "reply", reply, map[string]interface{}{
		"message_id": result.MessageID,
		"typing_ms":  result.TypingDuration.Milliseconds(),
	})
	s.touchOutbound(ctx, key)

	if _, err := s.scheduler.Schedule(ctx, key, 1, followup.Basis{}, followup.Context{}); err != nil {
		s.log.Error("Orchestrator", "Failed to schedule follow-up", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
	}

	s.publishEvent(ctx, events.NewReplySent(key, result.MessageID, len(turn.Fragments)))
}

// HandleCrmEvent reacts to CRM webhooks. A note written by anyone other than
// the bot user means a human operator is in the conversation; a stage change
// into a blocking classification kills pending follow-ups.
func (s *orchestratorService) HandleCrmEvent(ctx context.Context, req *dto.CrmEventRequest) error {
	key := req.Phone

	switch req.EventType {
	case "note_added":
		if req.AuthorId == "" || req.AuthorId == s.cfg.BotUserId {
			return nil
		}
		return s.Pause(ctx, key, s.cfg.PauseDuration)

	case "stage_changed":
		if !s.gate.IsBlockedByStage(ctx, key) {
			return nil
		}
		if cancelled, err := s.scheduler.Cancel(ctx, key); err != nil {
			return err
		} else if cancelled {
			s.publishEvent(ctx, events.NewFollowUpCancelled(key, "blocking_stage"))
		}
		s.log.Info("Orchestrator", "Conversation entered blocking stage", map[string]interface{}{
			"conversation_key": key, "status_id": req.StatusId,
		})
	}
	return nil
}

func (s *orchestratorService) Pause(ctx context.Context, conversationKey string, duration time.Duration) error {
	if duration <= 0 {
		duration = s.cfg.PauseDuration
	}
	s.gate.BeginPause(ctx, conversationKey, duration)

	if cancelled, err := s.scheduler.Cancel(ctx, conversationKey); err != nil {
		s.log.Error("Orchestrator", "Failed to cancel follow-up on pause", map[string]interface{}{
			"conversation_key": conversationKey, "error": err.Error(),
		})
	} else if cancelled {
		s.publishEvent(ctx, events.NewFollowUpCancelled(conversationKey, "handoff_paused"))
	}

	s.publishEvent(ctx, events.NewHandoffPaused(conversationKey, "human_takeover", s.clk.Now().Add(duration)))
	return nil
}

func (s *orchestratorService) Resume(ctx context.Context, conversationKey string) error {
	if !s.gate.ClearPause(ctx, conversationKey) {
		return fmt.Errorf("could not clear pause for conversation %s", conversationKey)
	}
	s.publishEvent(ctx, events.NewHandoffResumed(conversationKey))
	return nil
}

func (s *orchestratorService) BufferStatus(conversationKey string) *dto.BufferStatusResponse {
	status, open := s.buf.Status(conversationKey)
	resp := &dto.BufferStatusResponse{
		ConversationKey: conversationKey,
		Open:            open,
	}
	if open {
		openedAt := status.OpenedAt
		resp.FragmentCount = status.FragmentCount
		resp.OpenedAt = &openedAt
		resp.AgeMs = status.Age.Milliseconds()
	}
	return resp
}

func (s *orchestratorService) isOptOut(text string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range s.cfg.OptOutKeywords {
		if normalized == strings.ToLower(kw) {
			return true
		}
	}
	return false
}

func (s *orchestratorService) handleOptOut(ctx context.Context, key string) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByConversationKey{Key: key},
	)
	if err != nil {
		return err
	}
	now := s.clk.Now()
	if conversation == nil {
		conversation = &entity.Conversation{
			Id:              uuid.New(),
			ConversationKey: key,
			CreatedAt:       now,
		}
		conversation.OptedOut = true
		conversation.LastInboundAt = &now
		if err := uow.ConversationRepository().Create(ctx, conversation); err != nil {
			return err
		}
	} else {
		conversation.OptedOut = true
		conversation.LastInboundAt = &now
		if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
			return err
		}
	}

	if _, err := s.scheduler.Cancel(ctx, key); err != nil {
		s.log.Error("Orchestrator", "Failed to cancel follow-up on opt-out", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
	}
	s.buf.ForceFlush(ctx, key) // discard whatever burst was pending

	s.log.Info("Orchestrator", "Lead opted out", map[string]interface{}{
		"conversation_key": key,
	})
	s.publishEvent(ctx, events.NewLeadOptedOut(key))
	return nil
}

func (s *orchestratorService) upsertConversation(ctx context.Context, key, leadName string, now time.Time) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByConversationKey{Key: key},
	)
	if err != nil {
		return err
	}
	if conversation == nil {
		conversation = &entity.Conversation{
			Id:              uuid.New(),
			ConversationKey: key,
			LeadName:        leadName,
			LastInboundAt:   &now,
			CreatedAt:       now,
		}
		return uow.ConversationRepository().Create(ctx, conversation)
	}

	conversation.LastInboundAt = &now
	if leadName != "" {
		conversation.LeadName = leadName
	}
	return uow.ConversationRepository().Update(ctx, conversation)
}

func (s *orchestratorService) touchOutbound(ctx context.Context, key string) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByConversationKey{Key: key},
	)
	if err != nil || conversation == nil {
		return
	}
	now := s.clk.Now()
	conversation.LastOutboundAt = &now
	if err := uow.ConversationRepository().Update(ctx, conversation); err != nil {
		s.log.Warn("Orchestrator", "Failed to record outbound timestamp", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
	}
}

func (s *orchestratorService) logMessage(ctx context.Context, key string, direction entity.MessageDirection, kind, body string, metadata map[string]interface{}) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	entry := &entity.MessageLog{
		Id:              uuid.New(),
		ConversationKey: key,
		Direction:       direction,
		Kind:            kind,
		Body:            body,
		Metadata:        metadata,
		CreatedAt:       s.clk.Now(),
	}
	if err := uow.MessageLogRepository().Create(ctx, entry); err != nil {
		s.log.Warn("Orchestrator", "Failed to write message log", map[string]interface{}{
			"conversation_key": key, "error": err.Error(),
		})
	}
}

// publishEvent is fire-and-forget: the event bus is optional infrastructure.
func (s *orchestratorService) publishEvent(ctx context.Context, evt events.Event) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.Publish(ctx, evt); err != nil {
		s.log.Warn("Orchestrator", "Failed to publish domain event", map[string]interface{}{
			"event_type": evt.EventType(), "error": err.Error(),
		})
	}
}
