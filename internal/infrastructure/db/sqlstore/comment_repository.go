package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

// CommentRepository implements ports.CommentRepository with gorm.
type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) ports.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *domain.Comment) error {
	rec := &commentRecord{TaskID: c.TaskID, AuthorID: c.AuthorID, Content: c.Content, CreatedAt: c.CreatedAt}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	c.ID = rec.ID
	c.CreatedAt = rec.CreatedAt
	return nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*domain.Comment, error) {
	var rec commentRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *CommentRepository) ListByTask(ctx context.Context, taskID uint64) ([]*domain.Comment, error) {
	var recs []commentRecord
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Comment, len(recs))
	for i := range recs {
		out[i] = recs[i].toDomain()
	}
	return out, nil
}

func (r *CommentRepository) ListByTasks(ctx context.Context, taskIDs []uint64) (map[uint64][]domain.Comment, error) {
	out := make(map[uint64][]domain.Comment, len(taskIDs))
	if len(taskIDs) == 0 {
		return out, nil
	}
	var recs []commentRecord
	if err := r.db.WithContext(ctx).Where("task_id IN ?", taskIDs).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	for i := range recs {
		out[recs[i].TaskID] = append(out[recs[i].TaskID], *recs[i].toDomain())
	}
	return out, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&commentRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}
