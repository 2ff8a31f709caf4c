// Package followup re-engages leads that have gone quiet, with escalating
// cadence and stage-aware suppression.
package followup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/internal/repository/specification"
	"leadpilot-be/internal/repository/unitofwork"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/events"
	"leadpilot-be/pkg/orchestration/handoff"
	"leadpilot-be/pkg/orchestration/keylock"
	"leadpilot-be/pkg/orchestration/pacer"
	"leadpilot-be/pkg/reasoning"
)

// Basis expresses when a follow-up should land. Exactly one field is used;
// an empty basis falls back to the policy delay for the attempt.
type Basis struct {
	RelativeMinutes int
	RelativeHours   int
	ExplicitTime    *time.Time
}

// Context carries per-schedule overrides on top of the policy table.
type Context struct {
	Type     string
	Delay    *time.Duration
	Metadata map[string]interface{}
}

// EventPublisher is the slice of the event bus the scheduler needs. A nil
// publisher disables emission without disabling the scheduler.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Scheduler struct {
	uowFactory unitofwork.RepositoryFactory
	gate       *handoff.Machine
	engine     reasoning.Engine
	pace       *pacer.Pacer
	policy     Policy
	clk        clock.Clock
	locks      *keylock.KeyMutex
	bus        EventPublisher
	log        logger.ILogger
}

func NewScheduler(
	uowFactory unitofwork.RepositoryFactory,
	gate *handoff.Machine,
	engine reasoning.Engine,
	pace *pacer.Pacer,
	policy Policy,
	clk clock.Clock,
	locks *keylock.KeyMutex,
	bus EventPublisher,
	log logger.ILogger,
) *Scheduler {
	return &Scheduler{
		uowFactory: uowFactory,
		gate:       gate,
		engine:     engine,
		pace:       pace,
		policy:     policy,
		clk:        clk,
		locks:      locks,
		bus:        bus,
		log:        log,
	}
}

// Schedule creates the single pending follow-up for a conversation,
// cancelling any older pending task first, and clamps the fire time into
// business hours.
func (s *Scheduler) Schedule(ctx context.Context, conversationKey string, attempt int, basis Basis, fctx Context) (*entity.FollowUpTask, error) {
	now := s.clk.Now()

	var at time.Time
	switch {
	case basis.ExplicitTime != nil:
		at = *basis.ExplicitTime
	case basis.RelativeHours > 0:
		at = now.Add(time.Duration(basis.RelativeHours) * time.Hour)
	case basis.RelativeMinutes > 0:
		at = now.Add(time.Duration(basis.RelativeMinutes) * time.Minute)
	case fctx.Delay != nil:
		at = now.Add(*fctx.Delay)
	default:
		at = now.Add(s.policy.DelayFor(attempt))
	}
	at = s.policy.Hours.Clamp(at)

	taskType := fctx.Type
	if taskType == "" {
		taskType = "reengagement"
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin schedule tx: %w", err)
	}

	if err := s.cancelPendingLocked(ctx, uow, conversationKey); err != nil {
		_ = uow.Rollback()
		return nil, err
	}

	task := &entity.FollowUpTask{
		Id:              uuid.New(),
		ConversationKey: conversationKey,
		AttemptNumber:   attempt,
		Type:            taskType,
		ScheduledAt:     at,
		Status:          entity.FollowUpPending,
		Metadata:        fctx.Metadata,
		CreatedAt:       now,
	}
	if err := uow.FollowUpTaskRepository().Create(ctx, task); err != nil {
		_ = uow.Rollback()
		return nil, fmt.Errorf("create follow-up: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit schedule tx: %w", err)
	}

	s.log.Info("FollowUp", "Follow-up scheduled", map[string]interface{}{
		"conversation_key": conversationKey,
		"attempt":          attempt,
		"scheduled_at":     at,
	})
	return task, nil
}

// Cancel marks any pending task cancelled. Called when the lead replies,
// opts out, or reaches a blocking pipeline stage.
func (s *Scheduler) Cancel(ctx context.Context, conversationKey string) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	pending, err := uow.FollowUpTaskRepository().FindAll(ctx,
		specification.ByConversationKey{Key: conversationKey},
		specification.ByStatus{Status: string(entity.FollowUpPending)},
	)
	if err != nil {
		return false, fmt.Errorf("find pending follow-ups: %w", err)
	}

	for _, task := range pending {
		task.Status = entity.FollowUpCancelled
		if err := uow.FollowUpTaskRepository().Update(ctx, task); err != nil {
			return false, fmt.Errorf("cancel follow-up: %w", err)
		}
	}
	return len(pending) > 0, nil
}

// Tick fires every pending task that has come due. Eligibility is
// re-validated at fire time: a task scheduled while the lead was open but now
// blocked is cancelled, never sent. Delivery failures mark the task failed
// without retry; retry is a fresh Schedule call by policy.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) ([]*entity.FollowUpTask, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	due, err := uow.FollowUpTaskRepository().FindAll(ctx,
		specification.ByStatus{Status: string(entity.FollowUpPending)},
		specification.DueBefore{Time: now},
		specification.OrderBy{Field: "scheduled_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("find due follow-ups: %w", err)
	}

	fired := make([]*entity.FollowUpTask, 0, len(due))
	for _, task := range due {
		s.fire(ctx, task)
		fired = append(fired, task)
	}
	return fired, nil
}

// Rehydrate reports how many tasks survived a restart already due. The next
// Tick picks them up; this only surfaces the backlog.
func (s *Scheduler) Rehydrate(ctx context.Context) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	count, err := uow.FollowUpTaskRepository().Count(ctx,
		specification.ByStatus{Status: string(entity.FollowUpPending)},
		specification.DueBefore{Time: s.clk.Now()},
	)
	if err != nil {
		return 0, fmt.Errorf("count overdue follow-ups: %w", err)
	}
	if count > 0 {
		s.log.Info("FollowUp", "Recovered overdue follow-ups from persistence", map[string]interface{}{
			"count": count,
		})
	}
	return count, nil
}

func (s *Scheduler) fire(ctx context.Context, task *entity.FollowUpTask) {
	unlock := s.locks.Lock(task.ConversationKey)
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)

	// The task may have been cancelled or superseded while we waited on the
	// per-key lock.
	current, err := uow.FollowUpTaskRepository().FindOne(ctx, specification.ByID{ID: task.Id})
	if err != nil || current == nil || current.Status != entity.FollowUpPending {
		if current != nil {
			task.Status = current.Status
		}
		return
	}

	if !s.eligible(ctx, uow, task.ConversationKey) {
		task.Status = entity.FollowUpCancelled
		if err := uow.FollowUpTaskRepository().Update(ctx, task); err != nil {
			s.log.Error("FollowUp", "Failed to cancel ineligible follow-up", map[string]interface{}{
				"task_id": task.Id, "error": err.Error(),
			})
		}
		s.log.Info("FollowUp", "Follow-up cancelled at fire time", map[string]interface{}{
			"conversation_key": task.ConversationKey, "attempt": task.AttemptNumber,
		})
		s.publish(ctx, events.NewFollowUpCancelled(task.ConversationKey, "ineligible_at_fire"))
		return
	}

	payload, err := s.engine.FollowUp(ctx, task.ConversationKey, task.AttemptNumber)
	if err != nil {
		s.markFailed(ctx, uow, task, err)
		return
	}

	if _, err := s.pace.Send(ctx, task.ConversationKey, payload); err != nil {
		s.markFailed(ctx, uow, task, err)
		return
	}

	sentAt := s.clk.Now()
	task.Status = entity.FollowUpSent
	task.SentAt = &sentAt
	if err := uow.FollowUpTaskRepository().Update(ctx, task); err != nil {
		s.log.Error("FollowUp", "Follow-up sent but status update failed", map[string]interface{}{
			"task_id": task.Id, "error": err.Error(),
		})
	}
	s.publish(ctx, events.NewFollowUpFired(task.ConversationKey, task.AttemptNumber))

	// Escalate: the cadence table bounds the chain, a reply or a gate change
	// cuts it short through Cancel.
	if next := task.AttemptNumber + 1; next <= len(s.policy.AttemptDelays) {
		if _, err := s.Schedule(ctx, task.ConversationKey, next, Basis{}, Context{Type: task.Type}); err != nil {
			s.log.Error("FollowUp", "Failed to schedule next follow-up attempt", map[string]interface{}{
				"conversation_key": task.ConversationKey, "attempt": next, "error": err.Error(),
			})
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, evt events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		s.log.Warn("FollowUp", "Failed to publish follow-up event", map[string]interface{}{
			"event_type": evt.EventType(), "error": err.Error(),
		})
	}
}

// eligible re-checks the gate and opt-out state immediately before sending.
func (s *Scheduler) eligible(ctx context.Context, uow unitofwork.UnitOfWork, conversationKey string) bool {
	conversation, err := uow.ConversationRepository().FindOne(ctx,
		specification.ByConversationKey{Key: conversationKey},
	)
	if err == nil && conversation != nil && conversation.OptedOut {
		return false
	}
	return s.gate.AllowAutomation(ctx, conversationKey)
}

func (s *Scheduler) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, task *entity.FollowUpTask, cause error) {
	task.Status = entity.FollowUpFailed
	if task.Metadata == nil {
		task.Metadata = make(map[string]interface{})
	}
	task.Metadata["error"] = cause.Error()
	if err := uow.FollowUpTaskRepository().Update(ctx, task); err != nil {
		s.log.Error("FollowUp", "Failed to mark follow-up failed", map[string]interface{}{
			"task_id": task.Id, "error": err.Error(),
		})
	}
	s.log.Error("FollowUp", "Follow-up delivery failed", map[string]interface{}{
		"conversation_key": task.ConversationKey, "attempt": task.AttemptNumber, "error": cause.Error(),
	})
}

// cancelPendingLocked enforces the single-pending invariant inside the
// scheduling transaction. More than one pending task for a key means the
// cancel-before-schedule discipline broke somewhere; surface it loudly.
func (s *Scheduler) cancelPendingLocked(ctx context.Context, uow unitofwork.UnitOfWork, conversationKey string) error {
	pending, err := uow.FollowUpTaskRepository().FindAll(ctx,
		specification.ByConversationKey{Key: conversationKey},
		specification.ByStatus{Status: string(entity.FollowUpPending)},
	)
	if err != nil {
		return fmt.Errorf("find pending follow-ups: %w", err)
	}

	if len(pending) > 1 {
		s.log.Error("FollowUp", "Invariant violation: multiple pending follow-ups for one conversation", map[string]interface{}{
			"conversation_key": conversationKey, "count": len(pending),
		})
	}

	for _, old := range pending {
		old.Status = entity.FollowUpCancelled
		if err := uow.FollowUpTaskRepository().Update(ctx, old); err != nil {
			return fmt.Errorf("supersede follow-up: %w", err)
		}
	}
	return nil
}
