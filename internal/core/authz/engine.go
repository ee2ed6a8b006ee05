// Package authz decides whether an authenticated caller may perform an
// operation.
//
// Decisions happen in two layers. Policy.Check is the route-level gate and
// needs only the caller's role. Engine's Can* methods run after the target
// resource is loaded and compare the caller's resolved user id with the
// resource's owner fields. The resolved id is cached on the Principal, which
// lives for one request.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/taskflow/tms/internal/api/metrics"
	"github.com/taskflow/tms/internal/core/domain"
)

// UserLookup finds a user by login identifier.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Engine evaluates authorization rules. It holds no per-caller state and is
// safe for concurrent use.
type Engine struct {
	users  UserLookup
	policy Policy
	log    zerolog.Logger
}

// NewEngine returns an Engine using DefaultPolicy.
func NewEngine(users UserLookup, log zerolog.Logger) *Engine {
	return &Engine{users: users, policy: DefaultPolicy, log: log}
}

// Authorize applies the route-level policy for action.
func (e *Engine) Authorize(p *Principal, action Action) error {
	return e.record(action, e.policy.Check(action, p))
}

// RequireAdmin denies every caller that does not hold ADMIN, regardless of
// ownership.
func (e *Engine) RequireAdmin(p *Principal, action Action) error {
	if p == nil {
		return e.record(action, domain.ErrUnauthenticated)
	}
	if !p.IsAdmin() {
		return e.record(action, fmt.Errorf("%w: %s is admin only", domain.ErrForbidden, action))
	}
	return e.record(action, nil)
}

// ResolveUserID returns the numeric id of the caller. The user store is
// queried at most once per Principal.
func (e *Engine) ResolveUserID(ctx context.Context, p *Principal) (uint64, error) {
	if p == nil {
		return 0, domain.ErrUnauthenticated
	}
	return p.resolve(ctx, e.lookupID)
}

func (e *Engine) lookupID(ctx context.Context, subject string) (uint64, error) {
	u, err := e.users.FindByEmail(ctx, subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		e.log.Warn().Str("subject", subject).Msg("token subject has no matching user")
		return 0, fmt.Errorf("%w: %s", domain.ErrIdentityUnresolved, subject)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve identity: %w", err)
	}
	return u.ID, nil
}

// CanViewTask allows admins and the task's assignee.
func (e *Engine) CanViewTask(ctx context.Context, p *Principal, t *domain.Task) error {
	return e.record(ActionGetTask, e.adminOrAssignee(ctx, p, t))
}

// CanUpdateTask allows admins any change. Other callers must be the assignee
// and may not alter the task's definition or reassign it; that restriction is
// reported as domain.ErrRestrictedField rather than a denial.
func (e *Engine) CanUpdateTask(ctx context.Context, p *Principal, t *domain.Task, c domain.TaskChanges) error {
	if err := e.adminOrAssignee(ctx, p, t); err != nil {
		return e.record(ActionUpdateTask, err)
	}
	if p.IsAdmin() {
		return e.record(ActionUpdateTask, nil)
	}
	if c.DefinitionChanged(t) || (c.AssigneeID != nil && *c.AssigneeID != t.AssigneeID) {
		return e.record(ActionUpdateTask, domain.ErrRestrictedField)
	}
	return e.record(ActionUpdateTask, nil)
}

// CanChangeStatus allows admins and the task's assignee, then parses raw into
// a status. An unknown status is a validation error.
func (e *Engine) CanChangeStatus(ctx context.Context, p *Principal, t *domain.Task, raw string) (domain.TaskStatus, error) {
	if err := e.record(ActionChangeStatus, e.adminOrAssignee(ctx, p, t)); err != nil {
		return "", err
	}
	return domain.ParseStatus(raw)
}

// CanListByAuthor allows admins, or callers listing their own authored tasks.
func (e *Engine) CanListByAuthor(ctx context.Context, p *Principal, authorID uint64) error {
	return e.record(ActionListByAuthor, e.adminOrSelf(ctx, p, authorID))
}

// CanListByAssignee allows admins, or callers listing their own assigned tasks.
func (e *Engine) CanListByAssignee(ctx context.Context, p *Principal, assigneeID uint64) error {
	return e.record(ActionListByAssignee, e.adminOrSelf(ctx, p, assigneeID))
}

// CanAuthorAs allows admins to create tasks for any author; other callers may
// only author tasks as themselves.
func (e *Engine) CanAuthorAs(ctx context.Context, p *Principal, authorID uint64) error {
	return e.record(ActionCreateTask, e.adminOrSelf(ctx, p, authorID))
}

// CanDeleteComment allows admins and the comment's author.
func (e *Engine) CanDeleteComment(ctx context.Context, p *Principal, c *domain.Comment) error {
	return e.record(ActionDeleteComment, e.adminOrSelf(ctx, p, c.AuthorID))
}

func (e *Engine) adminOrAssignee(ctx context.Context, p *Principal, t *domain.Task) error {
	if err := e.adminOrSelf(ctx, p, t.AssigneeID); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			return fmt.Errorf("%w: not the assignee of task %d", domain.ErrForbidden, t.ID)
		}
		return err
	}
	return nil
}

func (e *Engine) adminOrSelf(ctx context.Context, p *Principal, ownerID uint64) error {
	if p == nil {
		return domain.ErrUnauthenticated
	}
	if p.IsAdmin() {
		return nil
	}
	id, err := e.ResolveUserID(ctx, p)
	if err != nil {
		return err
	}
	if ownerID == 0 || id != ownerID {
		return domain.ErrForbidden
	}
	return nil
}

func (e *Engine) record(action Action, err error) error {
	result := "allow"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrRestrictedField):
		result = "deny"
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrIdentityUnresolved):
		result = "unauthenticated"
	default:
		result = "error"
	}
	metrics.AuthzDecisionsTotal.WithLabelValues(string(action), result).Inc()
	return err
}
