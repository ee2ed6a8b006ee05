package domain

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a task. Any authorized caller may move a
// task to any status; no transition graph is enforced.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

// ParseStatus converts s into a TaskStatus. Matching is exact.
func ParseStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return TaskStatus(s), nil
	}
	return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
}

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority converts s into a Priority. Matching is exact.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	}
	return "", fmt.Errorf("%w: invalid priority %q", ErrValidation, s)
}

// Task is a unit of work authored by one user and assigned to another (or the same) user.
type Task struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	AuthorID    uint64     `json:"authorId"`
	AssigneeID  uint64     `json:"assigneeId"`
	Comments    []Comment  `json:"comments,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskChanges holds the fields an update request wants to set. Nil means "leave as is".
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *Priority
	AssigneeID  *uint64
}

// DefinitionChanged reports whether c alters the task's definition fields
// (title, description or priority) relative to t. A field set to its current
// value is not a change.
func (c TaskChanges) DefinitionChanged(t *Task) bool {
	if c.Title != nil && *c.Title != t.Title {
		return true
	}
	if c.Description != nil && *c.Description != t.Description {
		return true
	}
	if c.Priority != nil && *c.Priority != t.Priority {
		return true
	}
	return false
}

// Apply writes the non-nil fields of c onto t.
func (c TaskChanges) Apply(t *Task) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
	if c.AssigneeID != nil {
		t.AssigneeID = *c.AssigneeID
	}
}
