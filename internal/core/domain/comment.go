package domain

import "time"

// Comment is a note left on a task.
type Comment struct {
	ID        uint64    `json:"id"`
	TaskID    uint64    `json:"taskId"`
	AuthorID  uint64    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
