package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/api/middleware"
	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

type stubAuthService struct {
	loginFn func(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error)
}

func (s *stubAuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	return s.loginFn(ctx, in)
}

type stubUserService struct {
	ports.UserService
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	getFn      func(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error)
	passwordFn func(ctx context.Context, p *authz.Principal, in ports.ChangePasswordInput) error
}

func (s *stubUserService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubUserService) Get(ctx context.Context, p *authz.Principal, id uint64) (*domain.User, error) {
	return s.getFn(ctx, p, id)
}

func (s *stubUserService) ChangePassword(ctx context.Context, p *authz.Principal, in ports.ChangePasswordInput) error {
	return s.passwordFn(ctx, p, in)
}

type stubTaskService struct {
	ports.TaskService
	createFn   func(ctx context.Context, p *authz.Principal, in ports.CreateTaskInput) (*ports.CreateTaskResult, error)
	updateFn   func(ctx context.Context, p *authz.Principal, id uint64, in ports.UpdateTaskInput) (*domain.Task, error)
	statusFn   func(ctx context.Context, p *authz.Principal, id uint64, status string) (*domain.Task, error)
	listFn     func(ctx context.Context, p *authz.Principal, in ports.ListTasksInput) (*ports.ListTasksResult, error)
	byAuthorFn func(ctx context.Context, p *authz.Principal, id uint64, withComments bool) ([]*domain.Task, error)
	historyFn  func(ctx context.Context, p *authz.Principal, id uint64) ([]*domain.TaskEvent, error)
}

func (s *stubTaskService) CreateTask(ctx context.Context, p *authz.Principal, in ports.CreateTaskInput) (*ports.CreateTaskResult, error) {
	return s.createFn(ctx, p, in)
}

func (s *stubTaskService) UpdateTask(ctx context.Context, p *authz.Principal, id uint64, in ports.UpdateTaskInput) (*domain.Task, error) {
	return s.updateFn(ctx, p, id, in)
}

func (s *stubTaskService) ChangeStatus(ctx context.Context, p *authz.Principal, id uint64, status string) (*domain.Task, error) {
	return s.statusFn(ctx, p, id, status)
}

func (s *stubTaskService) ListTasks(ctx context.Context, p *authz.Principal, in ports.ListTasksInput) (*ports.ListTasksResult, error) {
	return s.listFn(ctx, p, in)
}

func (s *stubTaskService) ListByAuthor(ctx context.Context, p *authz.Principal, id uint64, withComments bool) ([]*domain.Task, error) {
	return s.byAuthorFn(ctx, p, id, withComments)
}

func (s *stubTaskService) History(ctx context.Context, p *authz.Principal, id uint64) ([]*domain.TaskEvent, error) {
	return s.historyFn(ctx, p, id)
}

type stubCommentService struct {
	addFn    func(ctx context.Context, p *authz.Principal, taskID uint64, content string) (*domain.Comment, error)
	listFn   func(ctx context.Context, p *authz.Principal, taskID uint64) ([]*domain.Comment, error)
	deleteFn func(ctx context.Context, p *authz.Principal, taskID, commentID uint64) error
}

func (s *stubCommentService) AddComment(ctx context.Context, p *authz.Principal, taskID uint64, content string) (*domain.Comment, error) {
	return s.addFn(ctx, p, taskID, content)
}

func (s *stubCommentService) ListComments(ctx context.Context, p *authz.Principal, taskID uint64) ([]*domain.Comment, error) {
	return s.listFn(ctx, p, taskID)
}

func (s *stubCommentService) DeleteComment(ctx context.Context, p *authz.Principal, taskID, commentID uint64) error {
	return s.deleteFn(ctx, p, taskID, commentID)
}

// newContext builds an echo context for method/target with an optional JSON
// body, path params and caller.
func newContext(method, target, body string, p *authz.Principal, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if len(params) > 0 {
		names := make([]string, 0, len(params)/2)
		values := make([]string, 0, len(params)/2)
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if p != nil {
		c.Set(middleware.PrincipalKey, p)
	}
	return c, rec
}

var (
	admin = authz.NewPrincipal("admin@x.com", domain.RoleAdmin)
	alice = authz.NewPrincipal("alice@x.com", domain.RoleUser)
)
