package contract

import (
	"context"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/repository/specification"
)

type FollowUpTaskRepository interface {
	Create(ctx context.Context, task *entity.FollowUpTask) error
	Update(ctx context.Context, task *entity.FollowUpTask) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FollowUpTask, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FollowUpTask, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
