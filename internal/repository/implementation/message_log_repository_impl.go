package implementation

import (
	"context"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/mapper"
	"leadpilot-be/internal/model"
	"leadpilot-be/internal/repository/contract"
	"leadpilot-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MessageLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewMessageLogRepository(db *gorm.DB) contract.MessageLogRepository {
	return &MessageLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *MessageLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageLogRepositoryImpl) Create(ctx context.Context, log *entity.MessageLog) error {
	m := r.mapper.MessageLogToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.MessageLogToEntity(m)
	return nil
}

func (r *MessageLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageLog, error) {
	var models []*model.MessageLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MessageLog, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MessageLogToEntity(m)
	}
	return entities, nil
}

func (r *MessageLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.MessageLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
