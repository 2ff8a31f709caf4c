package service

import (
	"context"
	"time"

	"leadpilot-be/internal/dto"
	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/pkg/logger"
	"leadpilot-be/internal/repository/specification"
	"leadpilot-be/internal/repository/unitofwork"
	"leadpilot-be/pkg/clock"
	"leadpilot-be/pkg/orchestration/followup"
)

type IFollowUpRunnerService interface {
	Start(ctx context.Context) error
	Stop()
	ListPending(ctx context.Context, limit, offset int) ([]dto.FollowUpTaskResponse, error)
}

type followUpRunnerService struct {
	scheduler  *followup.Scheduler
	uowFactory unitofwork.RepositoryFactory
	clk        clock.Clock
	interval   time.Duration
	ticker     clock.Ticker
	log        logger.ILogger
}

func NewFollowUpRunnerService(
	scheduler *followup.Scheduler,
	uowFactory unitofwork.RepositoryFactory,
	clk clock.Clock,
	interval time.Duration,
	log logger.ILogger,
) IFollowUpRunnerService {
	return &followUpRunnerService{
		scheduler:  scheduler,
		uowFactory: uowFactory,
		clk:        clk,
		interval:   interval,
		log:        log,
	}
}

// Start re-hydrates overdue tasks from persistence then drives the scheduler
// on a fixed tick. The scheduler tolerates ticks arriving late; a missed tick
// just means the next one fires more tasks.
func (s *followUpRunnerService) Start(ctx context.Context) error {
	if _, err := s.scheduler.Rehydrate(ctx); err != nil {
		s.log.Warn("FollowUpRunner", "Re-hydration query failed, continuing", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.ticker = s.clk.Every(s.interval, func() {
		if _, err := s.scheduler.Tick(ctx, s.clk.Now()); err != nil {
			s.log.Error("FollowUpRunner", "Scheduler tick failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})

	s.log.Info("FollowUpRunner", "Follow-up runner started", map[string]interface{}{
		"interval": s.interval.String(),
	})
	return nil
}

func (s *followUpRunnerService) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
}

func (s *followUpRunnerService) ListPending(ctx context.Context, limit, offset int) ([]dto.FollowUpTaskResponse, error) {
	specs := []specification.Specification{
		specification.ByStatus{Status: string(entity.FollowUpPending)},
		specification.OrderBy{Field: "scheduled_at"},
	}
	if limit > 0 {
		specs = append(specs, specification.Pagination{Limit: limit, Offset: offset})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	tasks, err := uow.FollowUpTaskRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	out := make([]dto.FollowUpTaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, dto.FollowUpTaskResponse{
			Id:              t.Id,
			ConversationKey: t.ConversationKey,
			AttemptNumber:   t.AttemptNumber,
			Type:            t.Type,
			ScheduledAt:     t.ScheduledAt,
			Status:          string(t.Status),
			SentAt:          t.SentAt,
		})
	}
	return out, nil
}
