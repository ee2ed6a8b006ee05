package ports

import (
	"context"

	"github.com/taskflow/tms/internal/core/domain"
)

// TaskPage describes one page of the admin task listing.
type TaskPage struct {
	Page      int    // 0-based
	Size      int    // rows per page
	SortField string // one of the column keys accepted by the repository
	Desc      bool
}

// TaskRepository defines persistence operations for tasks.
// Lookups return domain.ErrTaskNotFound when nothing matches.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	FindByID(ctx context.Context, id uint64) (*domain.Task, error)
	FindByAuthorID(ctx context.Context, authorID uint64) ([]*domain.Task, error)
	FindByAssigneeID(ctx context.Context, assigneeID uint64) ([]*domain.Task, error)
	// List returns one page of tasks and the total count.
	List(ctx context.Context, page TaskPage) ([]*domain.Task, int64, error)
	Update(ctx context.Context, task *domain.Task) error
	// Delete removes the task and its comments.
	Delete(ctx context.Context, id uint64) error
}

// CommentRepository defines persistence operations for comments.
// Lookups return domain.ErrCommentNotFound when nothing matches.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	FindByID(ctx context.Context, id uint64) (*domain.Comment, error)
	ListByTask(ctx context.Context, taskID uint64) ([]*domain.Comment, error)
	// ListByTasks returns comments grouped by task id.
	ListByTasks(ctx context.Context, taskIDs []uint64) (map[uint64][]domain.Comment, error)
	Delete(ctx context.Context, id uint64) error
}

// IdempotencyStore remembers which task a client-supplied Idempotency-Key created.
type IdempotencyStore interface {
	// Lookup returns the task id stored under key and whether one was found.
	Lookup(ctx context.Context, key string) (uint64, bool, error)
	// Remember stores taskID under key unless the key is already taken.
	Remember(ctx context.Context, key string, taskID uint64) error
}
