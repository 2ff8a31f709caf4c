package unitofwork

import (
	"context"

	"leadpilot-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	MessageLogRepository() contract.MessageLogRepository
	FollowUpTaskRepository() contract.FollowUpTaskRepository
}
