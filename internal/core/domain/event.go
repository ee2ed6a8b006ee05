package domain

import "time"

// TaskEventType names what happened to a task.
type TaskEventType string

const (
	EventTaskCreated       TaskEventType = "task_created"
	EventTaskUpdated       TaskEventType = "task_updated"
	EventTaskStatusChanged TaskEventType = "task_status_changed"
	EventTaskDeleted       TaskEventType = "task_deleted"
	EventCommentAdded      TaskEventType = "comment_added"
	EventCommentDeleted    TaskEventType = "comment_deleted"
)

// TaskEvent is an audit record of a change made to a task by an authenticated caller.
type TaskEvent struct {
	ID           string
	TaskID       uint64
	Type         TaskEventType
	ActorID      uint64
	ActorSubject string
	FromStatus   TaskStatus // set for status changes only
	ToStatus     TaskStatus // set for status changes only
	OccurredAt   time.Time
}
