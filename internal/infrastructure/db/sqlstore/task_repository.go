package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

// sortColumns maps the sort keys exposed by the API to column names.
var sortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
	"createdAt": "created_at",
}

// TaskRepository implements ports.TaskRepository with gorm.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) ports.TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	rec := taskFromDomain(task)
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	task.ID = rec.ID
	task.CreatedAt = rec.CreatedAt
	task.UpdatedAt = rec.UpdatedAt
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id uint64) (*domain.Task, error) {
	var rec taskRecord
	err := r.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *TaskRepository) FindByAuthorID(ctx context.Context, authorID uint64) ([]*domain.Task, error) {
	return r.find(ctx, "author_id = ?", authorID)
}

func (r *TaskRepository) FindByAssigneeID(ctx context.Context, assigneeID uint64) ([]*domain.Task, error) {
	return r.find(ctx, "assignee_id = ?", assigneeID)
}

func (r *TaskRepository) find(ctx context.Context, query string, arg any) ([]*domain.Task, error) {
	var recs []taskRecord
	if err := r.db.WithContext(ctx).Where(query, arg).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return toTasks(recs), nil
}

// List returns one page ordered by page.SortField. Unknown sort keys fall back to id.
func (r *TaskRepository) List(ctx context.Context, page ports.TaskPage) ([]*domain.Task, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&taskRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[page.SortField]
	if !ok {
		column = "id"
	}

	var recs []taskRecord
	err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: page.Desc}).
		Order("id").
		Limit(page.Size).
		Offset(page.Page * page.Size).
		Find(&recs).Error
	if err != nil {
		return nil, 0, err
	}
	return toTasks(recs), total, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	rec := taskFromDomain(task)
	return r.db.WithContext(ctx).Model(&taskRecord{ID: task.ID}).Select("*").Omit("created_at").Updates(rec).Error
}

// Delete removes the task and its comments in one transaction.
func (r *TaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&commentRecord{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&taskRecord{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTaskNotFound
		}
		return nil
	})
}

func toTasks(recs []taskRecord) []*domain.Task {
	tasks := make([]*domain.Task, len(recs))
	for i := range recs {
		tasks[i] = recs[i].toDomain()
	}
	return tasks
}
