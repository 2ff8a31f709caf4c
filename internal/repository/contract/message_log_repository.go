package contract

import (
	"context"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/repository/specification"
)

type MessageLogRepository interface {
	Create(ctx context.Context, log *entity.MessageLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
