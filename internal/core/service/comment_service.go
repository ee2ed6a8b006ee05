package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

var _ ports.CommentService = (*CommentService)(nil)

// CommentService implements the comment use cases.
type CommentService struct {
	tasks    ports.TaskRepository
	comments ports.CommentRepository
	audit    ports.EventPublisher
	engine   *authz.Engine
	log      zerolog.Logger
}

func NewCommentService(
	tasks ports.TaskRepository,
	comments ports.CommentRepository,
	audit ports.EventPublisher,
	engine *authz.Engine,
	log zerolog.Logger,
) *CommentService {
	return &CommentService{tasks: tasks, comments: comments, audit: audit, engine: engine, log: log}
}

// AddComment attaches a comment written by the caller to a task.
func (s *CommentService) AddComment(ctx context.Context, p *authz.Principal, taskID uint64, content string) (*domain.Comment, error) {
	if err := s.engine.Authorize(p, authz.ActionAddComment); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: comment content is required", domain.ErrValidation)
	}
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return nil, err
	}

	authorID, err := s.engine.ResolveUserID(ctx, p)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TaskID:    taskID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	publishEvent(ctx, s.audit, s.engine, s.log, p, taskID, domain.EventCommentAdded, "", "")
	s.log.Info().Uint64("task_id", taskID).Uint64("comment_id", comment.ID).Msg("comment added")
	return comment, nil
}

// ListComments returns the comments of a task, oldest first.
func (s *CommentService) ListComments(ctx context.Context, p *authz.Principal, taskID uint64) ([]*domain.Comment, error) {
	if err := s.engine.Authorize(p, authz.ActionListComments); err != nil {
		return nil, err
	}
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

// DeleteComment removes a comment. Admins may delete any comment, other
// callers only their own.
func (s *CommentService) DeleteComment(ctx context.Context, p *authz.Principal, taskID, commentID uint64) error {
	if err := s.engine.Authorize(p, authz.ActionDeleteComment); err != nil {
		return err
	}
	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return err
	}

	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.TaskID != taskID {
		return domain.ErrCommentNotFound
	}
	if err := s.engine.CanDeleteComment(ctx, p, comment); err != nil {
		return err
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	publishEvent(ctx, s.audit, s.engine, s.log, p, taskID, domain.EventCommentDeleted, "", "")
	s.log.Info().Uint64("task_id", taskID).Uint64("comment_id", commentID).Str("by", p.Subject).Msg("comment deleted")
	return nil
}
