package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

var discardLogger = zerolog.Nop()

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID        map[uint64]*domain.User
	nextID      uint64
	emailLookup int
}

func newStubUserRepo(users ...*domain.User) *stubUserRepo {
	r := &stubUserRepo{byID: make(map[uint64]*domain.User), nextID: 100}
	for _, u := range users {
		r.byID[u.ID] = cloneUser(u)
	}
	return r
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	r.nextID++
	user.ID = r.nextID
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.emailLookup++
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) UpdateRole(_ context.Context, id uint64, role domain.Role) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id uint64, hash string) error {
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func mustHash(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

// ---------------------------------------------------------------------------
// Tasks and comments
// ---------------------------------------------------------------------------

type stubTaskRepo struct {
	byID      map[uint64]*domain.Task
	nextID    uint64
	lastPage  ports.TaskPage
	updateErr error
	deleted   []uint64
}

func newStubTaskRepo(tasks ...*domain.Task) *stubTaskRepo {
	r := &stubTaskRepo{byID: make(map[uint64]*domain.Task), nextID: 1000}
	for _, t := range tasks {
		r.byID[t.ID] = cloneTask(t)
	}
	return r
}

func cloneTask(t *domain.Task) *domain.Task {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

func (r *stubTaskRepo) Create(_ context.Context, t *domain.Task) error {
	r.nextID++
	t.ID = r.nextID
	r.byID[t.ID] = cloneTask(t)
	return nil
}

func (r *stubTaskRepo) FindByID(_ context.Context, id uint64) (*domain.Task, error) {
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(t), nil
}

func (r *stubTaskRepo) filter(keep func(*domain.Task) bool) []*domain.Task {
	var out []*domain.Task
	for _, t := range r.byID {
		if keep(t) {
			out = append(out, cloneTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubTaskRepo) FindByAuthorID(_ context.Context, id uint64) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.AuthorID == id }), nil
}

func (r *stubTaskRepo) FindByAssigneeID(_ context.Context, id uint64) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.AssigneeID == id }), nil
}

func (r *stubTaskRepo) List(_ context.Context, page ports.TaskPage) ([]*domain.Task, int64, error) {
	r.lastPage = page
	all := r.filter(func(*domain.Task) bool { return true })
	start := page.Page * page.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *stubTaskRepo) Update(_ context.Context, t *domain.Task) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.byID[t.ID] = cloneTask(t)
	return nil
}

func (r *stubTaskRepo) Delete(_ context.Context, id uint64) error {
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type stubCommentRepo struct {
	byID   map[uint64]*domain.Comment
	nextID uint64
}

func newStubCommentRepo(comments ...*domain.Comment) *stubCommentRepo {
	r := &stubCommentRepo{byID: make(map[uint64]*domain.Comment)}
	for _, c := range comments {
		clone := *c
		r.byID[c.ID] = &clone
	}
	return r
}

func (r *stubCommentRepo) Create(_ context.Context, c *domain.Comment) error {
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.byID[c.ID] = &clone
	return nil
}

func (r *stubCommentRepo) FindByID(_ context.Context, id uint64) (*domain.Comment, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrCommentNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubCommentRepo) ListByTask(_ context.Context, taskID uint64) ([]*domain.Comment, error) {
	var out []*domain.Comment
	for _, c := range r.byID {
		if c.TaskID == taskID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubCommentRepo) ListByTasks(ctx context.Context, ids []uint64) (map[uint64][]domain.Comment, error) {
	out := make(map[uint64][]domain.Comment)
	for _, id := range ids {
		list, _ := r.ListByTask(ctx, id)
		for _, c := range list {
			out[id] = append(out[id], *c)
		}
	}
	return out, nil
}

func (r *stubCommentRepo) Delete(_ context.Context, id uint64) error {
	delete(r.byID, id)
	return nil
}

// ---------------------------------------------------------------------------
// Audit and idempotency
// ---------------------------------------------------------------------------

type stubPublisher struct {
	events []domain.TaskEvent
}

func (p *stubPublisher) Publish(e domain.TaskEvent) {
	p.events = append(p.events, e)
}

func (p *stubPublisher) types() []domain.TaskEventType {
	out := make([]domain.TaskEventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type stubEventRepo struct {
	inserted  []*domain.TaskEvent
	insertErr error
}

func (r *stubEventRepo) InsertEvent(_ context.Context, e *domain.TaskEvent) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, e)
	return nil
}

func (r *stubEventRepo) ListByTask(_ context.Context, taskID uint64) ([]*domain.TaskEvent, error) {
	var out []*domain.TaskEvent
	for _, e := range r.inserted {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubIdempotency struct {
	keys      map[string]uint64
	lookupErr error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]uint64)}
}

func (s *stubIdempotency) Lookup(_ context.Context, key string) (uint64, bool, error) {
	if s.lookupErr != nil {
		return 0, false, s.lookupErr
	}
	id, ok := s.keys[key]
	return id, ok, nil
}

func (s *stubIdempotency) Remember(_ context.Context, key string, id uint64) error {
	if _, ok := s.keys[key]; !ok {
		s.keys[key] = id
	}
	return nil
}

var errStoreDown = errors.New("store unavailable")

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	adminUser = &domain.User{ID: 1, Email: "root@x.com", Username: "root", Role: domain.RoleAdmin}
	aliceUser = &domain.User{ID: 5, Email: "alice@x.com", Username: "alice", Role: domain.RoleUser}
	bobUser   = &domain.User{ID: 7, Email: "bob@x.com", Username: "bob", Role: domain.RoleUser}
)

func principal(u *domain.User) *authz.Principal {
	return authz.NewPrincipal(u.Email, u.Role)
}

type taskFixture struct {
	users    *stubUserRepo
	tasks    *stubTaskRepo
	comments *stubCommentRepo
	events   *stubEventRepo
	idem     *stubIdempotency
	audit    *stubPublisher
	engine   *authz.Engine
	svc      *TaskService
}

func newTaskFixture(tasks ...*domain.Task) *taskFixture {
	f := &taskFixture{
		users:    newStubUserRepo(adminUser, aliceUser, bobUser),
		tasks:    newStubTaskRepo(tasks...),
		comments: newStubCommentRepo(),
		events:   &stubEventRepo{},
		idem:     newStubIdempotency(),
		audit:    &stubPublisher{},
	}
	f.engine = authz.NewEngine(f.users, discardLogger)
	f.svc = NewTaskService(TaskServiceDeps{
		Tasks:       f.tasks,
		Comments:    f.comments,
		Users:       f.users,
		Events:      f.events,
		Idempotency: f.idem,
		Audit:       f.audit,
		Engine:      f.engine,
	}, discardLogger)
	return f
}

func strPtr(s string) *string { return &s }
