package ports

import (
	"context"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
)

// CreateTaskInput carries all data needed to create a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	Status      string // optional, defaults to PENDING
	AuthorID    uint64 // optional, defaults to the caller
	AssigneeID  uint64
	// IdempotencyKey replays the original task when a create is retried.
	IdempotencyKey string
}

// CreateTaskResult is returned by CreateTask.
type CreateTaskResult struct {
	Task *domain.Task
	// AlreadyExisted is true when the Idempotency-Key matched an earlier create.
	AlreadyExisted bool
}

// UpdateTaskInput carries the fields to change. Nil fields are left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
	AssigneeID  *uint64
}

// ListTasksInput carries the parameters of the admin task listing as they
// arrive in the query string. They are parsed after the caller is authorized.
type ListTasksInput struct {
	Page      string // zero-based, defaults to 0
	Size      string // defaults to 10, capped at 100
	Direction string // ASC or DESC
	SortField string
}

// ListTasksResult is one page of tasks.
type ListTasksResult struct {
	Items      []*domain.Task
	Page       int
	Size       int
	Total      int64
	TotalPages int
}

// TaskService defines the task use cases. Every method takes the caller
// explicitly and enforces the ownership rules for it.
type TaskService interface {
	CreateTask(ctx context.Context, p *authz.Principal, in CreateTaskInput) (*CreateTaskResult, error)
	GetTask(ctx context.Context, p *authz.Principal, id uint64) (*domain.Task, error)
	UpdateTask(ctx context.Context, p *authz.Principal, id uint64, in UpdateTaskInput) (*domain.Task, error)
	ChangeStatus(ctx context.Context, p *authz.Principal, id uint64, status string) (*domain.Task, error)
	DeleteTask(ctx context.Context, p *authz.Principal, id uint64) error
	ListTasks(ctx context.Context, p *authz.Principal, in ListTasksInput) (*ListTasksResult, error)
	ListByAuthor(ctx context.Context, p *authz.Principal, authorID uint64, withComments bool) ([]*domain.Task, error)
	ListByAssignee(ctx context.Context, p *authz.Principal, assigneeID uint64, withComments bool) ([]*domain.Task, error)
	History(ctx context.Context, p *authz.Principal, id uint64) ([]*domain.TaskEvent, error)
}

// CommentService defines the comment use cases.
type CommentService interface {
	AddComment(ctx context.Context, p *authz.Principal, taskID uint64, content string) (*domain.Comment, error)
	ListComments(ctx context.Context, p *authz.Principal, taskID uint64) ([]*domain.Comment, error)
	DeleteComment(ctx context.Context, p *authz.Principal, taskID, commentID uint64) error
}
