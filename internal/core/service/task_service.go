package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/taskflow/tms/internal/api/metrics"
	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// sortFields lists the sort keys accepted by ListTasks.
var sortFields = map[string]struct{}{
	"id":        {},
	"title":     {},
	"status":    {},
	"priority":  {},
	"createdAt": {},
}

const (
	minTitleLength       = 3
	maxTitleLength       = 100
	maxDescriptionLength = 500
)

var _ ports.TaskService = (*TaskService)(nil)

// TaskService implements the task use cases.
type TaskService struct {
	tasks    ports.TaskRepository
	comments ports.CommentRepository
	users    ports.UserRepository
	events   ports.EventRepository
	idem     ports.IdempotencyStore
	audit    ports.EventPublisher
	engine   *authz.Engine
	log      zerolog.Logger
}

// TaskServiceDeps groups the collaborators of a TaskService.
type TaskServiceDeps struct {
	Tasks       ports.TaskRepository
	Comments    ports.CommentRepository
	Users       ports.UserRepository
	Events      ports.EventRepository
	Idempotency ports.IdempotencyStore
	Audit       ports.EventPublisher
	Engine      *authz.Engine
}

func NewTaskService(deps TaskServiceDeps, log zerolog.Logger) *TaskService {
	return &TaskService{
		tasks:    deps.Tasks,
		comments: deps.Comments,
		users:    deps.Users,
		events:   deps.Events,
		idem:     deps.Idempotency,
		audit:    deps.Audit,
		engine:   deps.Engine,
		log:      log,
	}
}

// CreateTask creates a task authored by the caller (or, for admins, by any
// user). If an idempotency key was already used by the same caller, the
// original task is returned without side effects.
func (s *TaskService) CreateTask(ctx context.Context, p *authz.Principal, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	if err := s.engine.Authorize(p, authz.ActionCreateTask); err != nil {
		return nil, err
	}

	idemKey := ""
	if in.IdempotencyKey != "" {
		idemKey = p.Subject + ":" + in.IdempotencyKey
		if existing := s.replay(ctx, idemKey); existing != nil {
			return &ports.CreateTaskResult{Task: existing, AlreadyExisted: true}, nil
		}
	}

	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}
	status := domain.StatusPending
	if in.Status != "" {
		if status, err = domain.ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}

	authorID := in.AuthorID
	if authorID == 0 {
		if authorID, err = s.engine.ResolveUserID(ctx, p); err != nil {
			return nil, err
		}
	} else if err := s.engine.CanAuthorAs(ctx, p, authorID); err != nil {
		return nil, err
	}

	if err := s.userExists(ctx, authorID, domain.ErrAuthorNotFound); err != nil {
		return nil, err
	}
	if err := s.userExists(ctx, in.AssigneeID, domain.ErrAssigneeNotFound); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	task := &domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		AuthorID:    authorID,
		AssigneeID:  in.AssigneeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		s.log.Error().Err(err).Msg("failed to create task")
		return nil, fmt.Errorf("create task: %w", err)
	}

	if idemKey != "" {
		if err := s.idem.Remember(ctx, idemKey, task.ID); err != nil {
			s.log.Warn().Err(err).Uint64("task_id", task.ID).Msg("failed to store idempotency key")
		}
	}

	metrics.TasksCreatedTotal.WithLabelValues(string(priority)).Inc()
	s.publish(ctx, p, task.ID, domain.EventTaskCreated, "", "")
	s.log.Info().
		Uint64("task_id", task.ID).
		Uint64("author_id", authorID).
		Uint64("assignee_id", task.AssigneeID).
		Msg("task created")

	return &ports.CreateTaskResult{Task: task}, nil
}

// replay returns the task previously created under key, or nil. Store errors
// are logged and treated as a miss.
func (s *TaskService) replay(ctx context.Context, key string) *domain.Task {
	id, found, err := s.idem.Lookup(ctx, key)
	if err != nil {
		metrics.IdempotencyTotal.WithLabelValues("error").Inc()
		s.log.Warn().Err(err).Msg("idempotency lookup failed, creating anyway")
		return nil
	}
	if !found {
		metrics.IdempotencyTotal.WithLabelValues("miss").Inc()
		return nil
	}

	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		metrics.IdempotencyTotal.WithLabelValues("miss").Inc()
		s.log.Warn().Err(err).Uint64("task_id", id).Msg("idempotent task no longer loadable")
		return nil
	}
	metrics.IdempotencyTotal.WithLabelValues("hit").Inc()
	s.log.Info().Uint64("task_id", id).Msg("idempotent replay")
	return task
}

func (s *TaskService) userExists(ctx context.Context, id uint64, notFound error) error {
	if id == 0 {
		return notFound
	}
	_, err := s.users.FindByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return notFound
	}
	return err
}

// GetTask returns a task visible to the caller.
func (s *TaskService) GetTask(ctx context.Context, p *authz.Principal, id uint64) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanViewTask(ctx, p, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies in to the task. Admins may change anything; the assignee
// may change the status only.
func (s *TaskService) UpdateTask(ctx context.Context, p *authz.Principal, id uint64, in ports.UpdateTaskInput) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, parseErr := toChanges(in)
	if err := s.engine.CanUpdateTask(ctx, p, task, changes); err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}

	if changes.AssigneeID != nil && *changes.AssigneeID != task.AssigneeID {
		if err := s.userExists(ctx, *changes.AssigneeID, domain.ErrAssigneeNotFound); err != nil {
			return nil, err
		}
	}

	from := task.Status
	changes.Apply(task)
	task.UpdatedAt = time.Now().UTC()

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.publish(ctx, p, task.ID, domain.EventTaskUpdated, "", "")
	if task.Status != from {
		s.publish(ctx, p, task.ID, domain.EventTaskStatusChanged, from, task.Status)
	}
	s.log.Info().Uint64("task_id", task.ID).Str("by", p.Subject).Msg("task updated")
	return task, nil
}

func toChanges(in ports.UpdateTaskInput) (domain.TaskChanges, error) {
	c := domain.TaskChanges{
		Title:       in.Title,
		Description: in.Description,
		AssigneeID:  in.AssigneeID,
	}
	var errs []error
	if in.Title != nil {
		if n := utf8.RuneCountInString(*in.Title); n < minTitleLength || n > maxTitleLength {
			errs = append(errs, fmt.Errorf("%w: title must be %d to %d characters", domain.ErrValidation, minTitleLength, maxTitleLength))
		}
	}
	if in.Description != nil && utf8.RuneCountInString(*in.Description) > maxDescriptionLength {
		errs = append(errs, fmt.Errorf("%w: description must be at most %d characters", domain.ErrValidation, maxDescriptionLength))
	}
	if in.Status != nil {
		st, err := domain.ParseStatus(*in.Status)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Status = &st
		}
	}
	if in.Priority != nil {
		pr, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Priority = &pr
		}
	}
	return c, errors.Join(errs...)
}

// ChangeStatus moves the task to status. Any status may follow any other.
func (s *TaskService) ChangeStatus(ctx context.Context, p *authz.Principal, id uint64, status string) (*domain.Task, error) {
	task, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := s.engine.CanChangeStatus(ctx, p, task, status)
	if err != nil {
		return nil, err
	}

	from := task.Status
	task.Status = next
	task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("change status: %w", err)
	}

	s.publish(ctx, p, task.ID, domain.EventTaskStatusChanged, from, next)
	s.log.Info().
		Uint64("task_id", task.ID).
		Str("from", string(from)).
		Str("to", string(next)).
		Msg("task status changed")
	return task, nil
}

// DeleteTask removes a task and its comments. Admin only.
func (s *TaskService) DeleteTask(ctx context.Context, p *authz.Principal, id uint64) error {
	if err := s.engine.RequireAdmin(p, authz.ActionDeleteTask); err != nil {
		return err
	}
	if _, err := s.tasks.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	s.publish(ctx, p, id, domain.EventTaskDeleted, "", "")
	s.log.Info().Uint64("task_id", id).Str("by", p.Subject).Msg("task deleted")
	return nil
}

// ListTasks returns one page of all tasks. Admin only.
func (s *TaskService) ListTasks(ctx context.Context, p *authz.Principal, in ports.ListTasksInput) (*ports.ListTasksResult, error) {
	if err := s.engine.RequireAdmin(p, authz.ActionListTasks); err != nil {
		return nil, err
	}

	page, err := normalizePage(in)
	if err != nil {
		return nil, err
	}

	items, total, err := s.tasks.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	return &ports.ListTasksResult{
		Items:      items,
		Page:       page.Page,
		Size:       page.Size,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

func normalizePage(in ports.ListTasksInput) (ports.TaskPage, error) {
	page := ports.TaskPage{SortField: in.SortField}

	if in.Page != "" {
		n, err := strconv.Atoi(in.Page)
		if err != nil || n < 0 {
			return page, fmt.Errorf("%w: page must be a non-negative integer", domain.ErrValidation)
		}
		page.Page = n
	}
	if in.Size != "" {
		n, err := strconv.Atoi(in.Size)
		if err != nil {
			return page, fmt.Errorf("%w: size must be an integer", domain.ErrValidation)
		}
		page.Size = n
	}
	if page.Size <= 0 {
		page.Size = defaultPageSize
	}
	if page.Size > maxPageSize {
		page.Size = maxPageSize
	}
	if page.SortField == "" {
		page.SortField = "id"
	}
	if _, ok := sortFields[page.SortField]; !ok {
		return page, fmt.Errorf("%w: cannot sort by %q", domain.ErrValidation, page.SortField)
	}
	switch strings.ToUpper(in.Direction) {
	case "", "ASC":
	case "DESC":
		page.Desc = true
	default:
		return page, fmt.Errorf("%w: direction must be ASC or DESC", domain.ErrValidation)
	}
	return page, nil
}

// ListByAuthor returns the tasks authored by authorID.
func (s *TaskService) ListByAuthor(ctx context.Context, p *authz.Principal, authorID uint64, withComments bool) ([]*domain.Task, error) {
	if err := s.engine.CanListByAuthor(ctx, p, authorID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindByAuthorID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("list by author: %w", err)
	}
	return s.withComments(ctx, tasks, withComments)
}

// ListByAssignee returns the tasks assigned to assigneeID.
func (s *TaskService) ListByAssignee(ctx context.Context, p *authz.Principal, assigneeID uint64, withComments bool) ([]*domain.Task, error) {
	if err := s.engine.CanListByAssignee(ctx, p, assigneeID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindByAssigneeID(ctx, assigneeID)
	if err != nil {
		return nil, fmt.Errorf("list by assignee: %w", err)
	}
	return s.withComments(ctx, tasks, withComments)
}

func (s *TaskService) withComments(ctx context.Context, tasks []*domain.Task, include bool) ([]*domain.Task, error) {
	if !include || len(tasks) == 0 {
		return tasks, nil
	}
	ids := make([]uint64, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	byTask, err := s.comments.ListByTasks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	for _, t := range tasks {
		t.Comments = byTask[t.ID]
	}
	return tasks, nil
}

// History returns the audit trail of a task, including deleted ones. Admin only.
func (s *TaskService) History(ctx context.Context, p *authz.Principal, id uint64) ([]*domain.TaskEvent, error) {
	if err := s.engine.RequireAdmin(p, authz.ActionTaskHistory); err != nil {
		return nil, err
	}
	events, err := s.events.ListByTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	return events, nil
}

// publish hands an audit event to the dispatcher. It never fails the caller.
func (s *TaskService) publish(ctx context.Context, p *authz.Principal, taskID uint64, typ domain.TaskEventType, from, to domain.TaskStatus) {
	publishEvent(ctx, s.audit, s.engine, s.log, p, taskID, typ, from, to)
}
