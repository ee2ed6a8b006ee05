package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/taskflow/tms/internal/core/domain"
	"github.com/taskflow/tms/internal/core/ports"
)

func seededTask() *domain.Task {
	return &domain.Task{
		ID:          9,
		Title:       "Write report",
		Description: "Quarterly numbers",
		Status:      domain.StatusPending,
		Priority:    domain.PriorityMedium,
		AuthorID:    adminUser.ID,
		AssigneeID:  aliceUser.ID,
	}
}

// ---------------------------------------------------------------------------
// CreateTask
// ---------------------------------------------------------------------------

func TestTaskService_CreateTask_DefaultsAuthorToCaller(t *testing.T) {
	f := newTaskFixture()

	res, err := f.svc.CreateTask(context.Background(), principal(aliceUser), ports.CreateTaskInput{
		Title:      "Fix bug",
		Priority:   "HIGH",
		AssigneeID: bobUser.ID,
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if res.Task.AuthorID != aliceUser.ID {
		t.Errorf("expected author %d, got %d", aliceUser.ID, res.Task.AuthorID)
	}
	if res.Task.Status != domain.StatusPending {
		t.Errorf("expected default status PENDING, got %s", res.Task.Status)
	}
	if res.AlreadyExisted {
		t.Errorf("fresh task must not be flagged as replay")
	}
	if got := f.audit.types(); len(got) != 1 || got[0] != domain.EventTaskCreated {
		t.Errorf("expected one task_created event, got %v", got)
	}
	if f.audit.events[0].ActorID != aliceUser.ID || f.audit.events[0].ActorSubject != aliceUser.Email {
		t.Errorf("unexpected actor on audit event: %+v", f.audit.events[0])
	}
}

func TestTaskService_CreateTask_AuthorAndAssigneeMustExist(t *testing.T) {
	f := newTaskFixture()
	admin := principal(adminUser)

	_, err := f.svc.CreateTask(context.Background(), admin, ports.CreateTaskInput{
		Title: "x", Priority: "LOW", AuthorID: 404, AssigneeID: aliceUser.ID,
	})
	if !errors.Is(err, domain.ErrAuthorNotFound) {
		t.Fatalf("expected ErrAuthorNotFound, got %v", err)
	}

	_, err = f.svc.CreateTask(context.Background(), admin, ports.CreateTaskInput{
		Title: "x", Priority: "LOW", AssigneeID: 404,
	})
	if !errors.Is(err, domain.ErrAssigneeNotFound) {
		t.Fatalf("expected ErrAssigneeNotFound, got %v", err)
	}
	if len(f.tasks.byID) != 0 {
		t.Fatalf("no task should have been stored")
	}
}

func TestTaskService_CreateTask_OnlyAdminAuthorsForOthers(t *testing.T) {
	f := newTaskFixture()

	_, err := f.svc.CreateTask(context.Background(), principal(aliceUser), ports.CreateTaskInput{
		Title: "x", Priority: "LOW", AuthorID: bobUser.ID, AssigneeID: bobUser.ID,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	res, err := f.svc.CreateTask(context.Background(), principal(adminUser), ports.CreateTaskInput{
		Title: "x", Priority: "LOW", AuthorID: bobUser.ID, AssigneeID: aliceUser.ID,
	})
	if err != nil {
		t.Fatalf("admin create failed: %v", err)
	}
	if res.Task.AuthorID != bobUser.ID {
		t.Fatalf("expected author %d, got %d", bobUser.ID, res.Task.AuthorID)
	}
}

func TestTaskService_CreateTask_InvalidEnums(t *testing.T) {
	f := newTaskFixture()
	p := principal(aliceUser)

	for _, in := range []ports.CreateTaskInput{
		{Title: "x", Priority: "URGENT", AssigneeID: aliceUser.ID},
		{Title: "x", Priority: "LOW", Status: "DONE", AssigneeID: aliceUser.ID},
	} {
		if _, err := f.svc.CreateTask(context.Background(), p, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for %+v, got %v", in, err)
		}
	}
}

func TestTaskService_CreateTask_IdempotentReplay(t *testing.T) {
	f := newTaskFixture()
	p := principal(aliceUser)
	in := ports.CreateTaskInput{Title: "once", Priority: "LOW", AssigneeID: aliceUser.ID, IdempotencyKey: "k-1"}

	first, err := f.svc.CreateTask(context.Background(), p, in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := f.svc.CreateTask(context.Background(), principal(aliceUser), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !second.AlreadyExisted || second.Task.ID != first.Task.ID {
		t.Fatalf("expected replay of task %d, got %+v", first.Task.ID, second)
	}
	if len(f.tasks.byID) != 1 {
		t.Fatalf("expected exactly one stored task, got %d", len(f.tasks.byID))
	}

	// The key is scoped to the caller.
	third, err := f.svc.CreateTask(context.Background(), principal(bobUser), ports.CreateTaskInput{
		Title: "once", Priority: "LOW", AssigneeID: bobUser.ID, IdempotencyKey: "k-1",
	})
	if err != nil {
		t.Fatalf("third create: %v", err)
	}
	if third.AlreadyExisted {
		t.Fatalf("another caller must not replay alice's task")
	}
}

func TestTaskService_CreateTask_IdempotencyStoreDownStillCreates(t *testing.T) {
	f := newTaskFixture()
	f.idem.lookupErr = errStoreDown

	res, err := f.svc.CreateTask(context.Background(), principal(aliceUser), ports.CreateTaskInput{
		Title: "x", Priority: "LOW", AssigneeID: aliceUser.ID, IdempotencyKey: "k",
	})
	if err != nil {
		t.Fatalf("expected create despite store error, got %v", err)
	}
	if res.AlreadyExisted {
		t.Fatalf("unexpected replay")
	}
}

// ---------------------------------------------------------------------------
// GetTask / UpdateTask / ChangeStatus
// ---------------------------------------------------------------------------

func TestTaskService_NotFoundBeforeOwnership(t *testing.T) {
	f := newTaskFixture()
	p := principal(bobUser)
	ctx := context.Background()

	if _, err := f.svc.GetTask(ctx, p, 404); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("GetTask: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.UpdateTask(ctx, p, 404, ports.UpdateTaskInput{}); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("UpdateTask: expected ErrTaskNotFound, got %v", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, p, 404, "COMPLETED"); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("ChangeStatus: expected ErrTaskNotFound, got %v", err)
	}
}

func TestTaskService_NonAssigneeForbidden(t *testing.T) {
	f := newTaskFixture(seededTask())
	p := principal(bobUser)
	ctx := context.Background()

	if _, err := f.svc.GetTask(ctx, p, 9); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("GetTask: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.UpdateTask(ctx, p, 9, ports.UpdateTaskInput{Status: strPtr("COMPLETED")}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("UpdateTask: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.ChangeStatus(ctx, p, 9, "COMPLETED"); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ChangeStatus: expected ErrForbidden, got %v", err)
	}
	if len(f.audit.events) != 0 {
		t.Errorf("denied calls must not emit audit events")
	}
}

func TestTaskService_UpdateTask_AssigneeStatusOnly(t *testing.T) {
	f := newTaskFixture(seededTask())
	p := principal(aliceUser)

	task, err := f.svc.UpdateTask(context.Background(), p, 9, ports.UpdateTaskInput{Status: strPtr("IN_PROGRESS")})
	if err != nil {
		t.Fatalf("expected status update to succeed, got %v", err)
	}
	if task.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", task.Status)
	}
	got := f.audit.types()
	if len(got) != 2 || got[0] != domain.EventTaskUpdated || got[1] != domain.EventTaskStatusChanged {
		t.Fatalf("unexpected audit events: %v", got)
	}

	_, err = f.svc.UpdateTask(context.Background(), p, 9, ports.UpdateTaskInput{Title: strPtr("Renamed")})
	if !errors.Is(err, domain.ErrRestrictedField) {
		t.Fatalf("expected ErrRestrictedField, got %v", err)
	}
	stored, _ := f.tasks.FindByID(context.Background(), 9)
	if stored.Title != "Write report" {
		t.Fatalf("title must not change, got %q", stored.Title)
	}
}

func TestTaskService_UpdateTask_InvalidEnumIsValidationError(t *testing.T) {
	f := newTaskFixture(seededTask())

	_, err := f.svc.UpdateTask(context.Background(), principal(aliceUser), 9, ports.UpdateTaskInput{Status: strPtr("DONE")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	// A stranger is denied before the payload is judged.
	_, err = f.svc.UpdateTask(context.Background(), principal(bobUser), 9, ports.UpdateTaskInput{Status: strPtr("DONE")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_UpdateTask_FieldLengthsCheckedAfterAuthorization(t *testing.T) {
	f := newTaskFixture(seededTask())

	_, err := f.svc.UpdateTask(context.Background(), principal(bobUser), 9, ports.UpdateTaskInput{Title: strPtr("ab")})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("stranger: expected ErrForbidden, got %v", err)
	}

	_, err = f.svc.UpdateTask(context.Background(), principal(adminUser), 9, ports.UpdateTaskInput{Title: strPtr("ab")})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("admin short title: expected ErrValidation, got %v", err)
	}

	long := strings.Repeat("d", 501)
	_, err = f.svc.UpdateTask(context.Background(), principal(adminUser), 9, ports.UpdateTaskInput{Description: &long})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("admin long description: expected ErrValidation, got %v", err)
	}
	if stored := f.tasks.byID[9]; stored.Title != "Write report" || stored.Description != "Quarterly numbers" {
		t.Fatalf("invalid updates must not be stored: %+v", stored)
	}
}

func TestTaskService_UpdateTask_AdminUnrestricted(t *testing.T) {
	f := newTaskFixture(seededTask())
	bob := bobUser.ID

	task, err := f.svc.UpdateTask(context.Background(), principal(adminUser), 9, ports.UpdateTaskInput{
		Title:      strPtr("New title"),
		Priority:   strPtr("HIGH"),
		AssigneeID: &bob,
	})
	if err != nil {
		t.Fatalf("admin update failed: %v", err)
	}
	if task.Title != "New title" || task.Priority != domain.PriorityHigh || task.AssigneeID != bob {
		t.Fatalf("changes not applied: %+v", task)
	}

	missing := uint64(404)
	_, err = f.svc.UpdateTask(context.Background(), principal(adminUser), 9, ports.UpdateTaskInput{AssigneeID: &missing})
	if !errors.Is(err, domain.ErrAssigneeNotFound) {
		t.Fatalf("expected ErrAssigneeNotFound, got %v", err)
	}
}

func TestTaskService_ChangeStatus(t *testing.T) {
	f := newTaskFixture(seededTask())

	task, err := f.svc.ChangeStatus(context.Background(), principal(aliceUser), 9, "COMPLETED")
	if err != nil {
		t.Fatalf("assignee status change failed: %v", err)
	}
	if task.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", task.Status)
	}
	ev := f.audit.events[len(f.audit.events)-1]
	if ev.FromStatus != domain.StatusPending || ev.ToStatus != domain.StatusCompleted {
		t.Fatalf("unexpected transition on event: %+v", ev)
	}

	// Any status may follow any other.
	if _, err := f.svc.ChangeStatus(context.Background(), principal(adminUser), 9, "PENDING"); err != nil {
		t.Fatalf("admin status change failed: %v", err)
	}

	if _, err := f.svc.ChangeStatus(context.Background(), principal(aliceUser), 9, "done"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Admin-only operations
// ---------------------------------------------------------------------------

func TestTaskService_DeleteAndList_AdminOnly(t *testing.T) {
	f := newTaskFixture(seededTask())
	ctx := context.Background()

	// Even the assignee cannot delete or list.
	if err := f.svc.DeleteTask(ctx, principal(aliceUser), 9); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("DeleteTask: expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.ListTasks(ctx, principal(aliceUser), ports.ListTasksInput{}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ListTasks: expected ErrForbidden, got %v", err)
	}
	// Paging input is judged only after the admin check.
	if _, err := f.svc.ListTasks(ctx, principal(aliceUser), ports.ListTasksInput{Page: "abc", Size: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("ListTasks(bad paging): expected ErrForbidden, got %v", err)
	}
	// Admin-only operations are denied before the task is looked up.
	if err := f.svc.DeleteTask(ctx, principal(bobUser), 404); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("DeleteTask(missing): expected ErrForbidden, got %v", err)
	}

	if err := f.svc.DeleteTask(ctx, principal(adminUser), 9); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
	if len(f.tasks.deleted) != 1 || f.tasks.deleted[0] != 9 {
		t.Fatalf("expected task 9 deleted, got %v", f.tasks.deleted)
	}
	if err := f.svc.DeleteTask(ctx, principal(adminUser), 9); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

func TestTaskService_ListTasks_Pagination(t *testing.T) {
	var seed []*domain.Task
	for i := uint64(1); i <= 25; i++ {
		seed = append(seed, &domain.Task{ID: i, AuthorID: 1, AssigneeID: 5, Status: domain.StatusPending, Priority: domain.PriorityLow})
	}
	f := newTaskFixture(seed...)
	admin := principal(adminUser)

	res, err := f.svc.ListTasks(context.Background(), admin, ports.ListTasksInput{Page: "2"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if res.Size != defaultPageSize || res.Total != 25 || res.TotalPages != 3 || len(res.Items) != 5 {
		t.Fatalf("unexpected page: size=%d total=%d pages=%d items=%d", res.Size, res.Total, res.TotalPages, len(res.Items))
	}
	if f.tasks.lastPage.SortField != "id" || f.tasks.lastPage.Desc {
		t.Fatalf("unexpected default sort: %+v", f.tasks.lastPage)
	}

	if _, err := f.svc.ListTasks(context.Background(), admin, ports.ListTasksInput{Size: "500", Direction: "desc", SortField: "createdAt"}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if f.tasks.lastPage.Size != maxPageSize || !f.tasks.lastPage.Desc {
		t.Fatalf("expected capped size and DESC, got %+v", f.tasks.lastPage)
	}

	bad := []ports.ListTasksInput{
		{SortField: "password"},
		{Direction: "SIDEWAYS"},
		{Page: "-1"},
		{Page: "abc"},
		{Size: "ten"},
	}
	for _, in := range bad {
		if _, err := f.svc.ListTasks(context.Background(), admin, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for %+v, got %v", in, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Listing by author / assignee
// ---------------------------------------------------------------------------

func TestTaskService_ListByAuthor(t *testing.T) {
	author42 := &domain.User{ID: 42, Email: "author@x.com", Role: domain.RoleUser}
	caller7 := bobUser
	f := newTaskFixture(
		&domain.Task{ID: 1, AuthorID: 42, AssigneeID: 7},
		&domain.Task{ID: 2, AuthorID: 42, AssigneeID: 5},
		&domain.Task{ID: 3, AuthorID: 5, AssigneeID: 42},
	)
	f.users.byID[42] = author42
	ctx := context.Background()

	if _, err := f.svc.ListByAuthor(ctx, principal(caller7), 42, false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for id 7 listing author 42, got %v", err)
	}

	own, err := f.svc.ListByAuthor(ctx, principal(author42), 42, false)
	if err != nil {
		t.Fatalf("own listing failed: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(own))
	}
	for _, task := range own {
		if task.AuthorID != 42 {
			t.Fatalf("foreign task %d in author listing", task.ID)
		}
	}

	if _, err := f.svc.ListByAuthor(ctx, principal(adminUser), 42, false); err != nil {
		t.Fatalf("admin listing failed: %v", err)
	}
}

func TestTaskService_ListByAssignee_WithComments(t *testing.T) {
	f := newTaskFixture(seededTask())
	f.comments.byID[1] = &domain.Comment{ID: 1, TaskID: 9, AuthorID: 5, Content: "on it"}

	tasks, err := f.svc.ListByAssignee(context.Background(), principal(aliceUser), aliceUser.ID, true)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(tasks) != 1 || len(tasks[0].Comments) != 1 || tasks[0].Comments[0].Content != "on it" {
		t.Fatalf("expected task with embedded comment, got %+v", tasks)
	}

	plain, err := f.svc.ListByAssignee(context.Background(), principal(aliceUser), aliceUser.ID, false)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(plain[0].Comments) != 0 {
		t.Fatalf("comments must be omitted unless requested")
	}

	if _, err := f.svc.ListByAssignee(context.Background(), principal(bobUser), aliceUser.ID, false); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTaskService_IdentityResolvedOncePerRequest(t *testing.T) {
	f := newTaskFixture(seededTask())
	p := principal(aliceUser)

	if _, err := f.svc.UpdateTask(context.Background(), p, 9, ports.UpdateTaskInput{Status: strPtr("COMPLETED")}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if f.users.emailLookup != 1 {
		t.Fatalf("expected a single identity lookup, got %d", f.users.emailLookup)
	}
}

func TestTaskService_History(t *testing.T) {
	f := newTaskFixture()
	f.events.inserted = []*domain.TaskEvent{{ID: "e1", TaskID: 9, Type: domain.EventTaskCreated}}

	if _, err := f.svc.History(context.Background(), principal(aliceUser), 9); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	events, err := f.svc.History(context.Background(), principal(adminUser), 9)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}
