package handler

import (
	"time"

	"github.com/taskflow/tms/internal/core/domain"
)

// errorResponse documents the envelope rendered by the API error handler.
type errorResponse struct {
	Error string `json:"error"`
}

type registerRequest struct {
	Email    string `json:"email"    validate:"required,email,max=100"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required"`
}

type tokenRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type createTaskRequest struct {
	Title       string `json:"title"       validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
	Priority    string `json:"priority"    validate:"required,oneof=LOW MEDIUM HIGH"`
	Status      string `json:"status"      validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
	AuthorID    uint64 `json:"authorId"`
	AssigneeID  uint64 `json:"assigneeId"  validate:"required"`
}

// updateTaskRequest and changeStatusRequest carry no validation tags. The
// service judges their content once the caller is allowed to touch the task.
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	AssigneeID  *uint64 `json:"assigneeId"`
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

type taskPageResponse struct {
	Items      []*domain.Task `json:"items"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	Total      int64          `json:"total"`
	TotalPages int            `json:"totalPages"`
}

type commentRequest struct {
	Content string `json:"content" validate:"required,max=1000"`
}

type taskEventResponse struct {
	ID           string    `json:"id"`
	TaskID       uint64    `json:"taskId"`
	Type         string    `json:"type"`
	ActorID      uint64    `json:"actorId,omitempty"`
	ActorSubject string    `json:"actorSubject"`
	FromStatus   string    `json:"fromStatus,omitempty"`
	ToStatus     string    `json:"toStatus,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

func toEventResponses(events []*domain.TaskEvent) []taskEventResponse {
	out := make([]taskEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, taskEventResponse{
			ID:           e.ID,
			TaskID:       e.TaskID,
			Type:         string(e.Type),
			ActorID:      e.ActorID,
			ActorSubject: e.ActorSubject,
			FromStatus:   string(e.FromStatus),
			ToStatus:     string(e.ToStatus),
			OccurredAt:   e.OccurredAt,
		})
	}
	return out
}
