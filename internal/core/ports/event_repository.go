package ports

import (
	"context"

	"github.com/taskflow/tms/internal/core/domain"
)

// EventRepository persists the task audit trail.
type EventRepository interface {
	// InsertEvent appends an event to the task_events collection.
	InsertEvent(ctx context.Context, event *domain.TaskEvent) error
	// ListByTask returns the events recorded for a task, oldest first.
	ListByTask(ctx context.Context, taskID uint64) ([]*domain.TaskEvent, error)
}

// EventPublisher hands audit events to the asynchronous writer. Publish must
// not block the request.
type EventPublisher interface {
	Publish(event domain.TaskEvent)
}

// AuditService records audit events.
type AuditService interface {
	Record(ctx context.Context, event domain.TaskEvent) error
}
