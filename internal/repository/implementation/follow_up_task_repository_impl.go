package implementation

import (
	"context"
	"errors"

	"leadpilot-be/internal/entity"
	"leadpilot-be/internal/mapper"
	"leadpilot-be/internal/model"
	"leadpilot-be/internal/repository/contract"
	"leadpilot-be/internal/repository/specification"

	"gorm.io/gorm"
)

type FollowUpTaskRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FollowUpMapper
}

func NewFollowUpTaskRepository(db *gorm.DB) contract.FollowUpTaskRepository {
	return &FollowUpTaskRepositoryImpl{
		db:     db,
		mapper: mapper.NewFollowUpMapper(),
	}
}

func (r *FollowUpTaskRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *FollowUpTaskRepositoryImpl) Create(ctx context.Context, task *entity.FollowUpTask) error {
	m := r.mapper.ToModel(task)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*task = *r.mapper.ToEntity(m)
	return nil
}

func (r *FollowUpTaskRepositoryImpl) Update(ctx context.Context, task *entity.FollowUpTask) error {
	m := r.mapper.ToModel(task)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*task = *r.mapper.ToEntity(m)
	return nil
}

func (r *FollowUpTaskRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.FollowUpTask, error) {
	var m model.FollowUpTask
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *FollowUpTaskRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.FollowUpTask, error) {
	var models []*model.FollowUpTask
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.FollowUpTask, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *FollowUpTaskRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.FollowUpTask{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
