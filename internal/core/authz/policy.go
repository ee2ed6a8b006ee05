package authz

import (
	"fmt"

	"github.com/taskflow/tms/internal/core/domain"
)

// Action names an operation gated by the route-level policy.
type Action string

const (
	ActionRegisterUser   Action = "register-user"
	ActionIssueToken     Action = "issue-token"
	ActionListUsers      Action = "list-users"
	ActionGetUser        Action = "get-user"
	ActionManageRoles    Action = "manage-roles"
	ActionChangePassword Action = "change-password"
	ActionListTasks      Action = "list-tasks"
	ActionCreateTask     Action = "create-task"
	ActionGetTask        Action = "get-task"
	ActionUpdateTask     Action = "update-task"
	ActionChangeStatus   Action = "change-task-status"
	ActionDeleteTask     Action = "delete-task"
	ActionTaskHistory    Action = "task-history"
	ActionListByAuthor   Action = "list-tasks-by-author"
	ActionListByAssignee Action = "list-tasks-by-assignee"
	ActionAddComment     Action = "add-comment"
	ActionListComments   Action = "list-comments"
	ActionDeleteComment  Action = "delete-comment"
)

// Requirement is the gate for one action: either public, or one of Roles.
type Requirement struct {
	Public bool
	Roles  []domain.Role
}

func anyOf(roles ...domain.Role) Requirement { return Requirement{Roles: roles} }

var (
	adminOnly     = anyOf(domain.RoleAdmin)
	authenticated = anyOf(domain.RoleAdmin, domain.RoleUser)
	public        = Requirement{Public: true}
)

// Policy maps each action to its requirement. Actions missing from the table
// are denied.
type Policy map[Action]Requirement

// DefaultPolicy is the route-level table. Entries that allow USER may be
// narrowed further by the Engine once the target resource is loaded.
var DefaultPolicy = Policy{
	ActionRegisterUser:   public,
	ActionIssueToken:     public,
	ActionListUsers:      adminOnly,
	ActionGetUser:        adminOnly,
	ActionManageRoles:    adminOnly,
	ActionChangePassword: authenticated,
	ActionListTasks:      adminOnly,
	ActionCreateTask:     authenticated,
	ActionGetTask:        authenticated,
	ActionUpdateTask:     authenticated,
	ActionChangeStatus:   authenticated,
	ActionDeleteTask:     adminOnly,
	ActionTaskHistory:    adminOnly,
	ActionListByAuthor:   authenticated,
	ActionListByAssignee: authenticated,
	ActionAddComment:     authenticated,
	ActionListComments:   authenticated,
	ActionDeleteComment:  authenticated,
}

// Check evaluates action for p without loading any resource. A nil p is an
// anonymous caller.
func (pol Policy) Check(action Action, p *Principal) error {
	req, ok := pol[action]
	if !ok {
		return fmt.Errorf("%w: no policy for %s", domain.ErrForbidden, action)
	}
	if req.Public {
		return nil
	}
	if p == nil {
		return domain.ErrUnauthenticated
	}
	for _, r := range req.Roles {
		if p.Role == r {
			return nil
		}
	}
	return fmt.Errorf("%w: %s requires one of %v", domain.ErrForbidden, action, req.Roles)
}
