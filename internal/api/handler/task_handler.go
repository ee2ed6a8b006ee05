package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/core/ports"
)

// HeaderIdempotencyKey carries the client's retry key on task creation.
const HeaderIdempotencyKey = "Idempotency-Key"

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	tasks ports.TaskService
}

func NewTaskHandler(tasks ports.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Create handles POST /api/tasks.
//
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replays the original task when a create is retried"
// @Param        body             body      createTaskRequest  true   "Task"
// @Success      201              {object}  domain.Task
// @Success      200              {object}  domain.Task  "Replayed by Idempotency-Key"
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	var req createTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.tasks.CreateTask(c.Request().Context(), principal(c), ports.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Status:         req.Status,
		AuthorID:       req.AuthorID,
		AssigneeID:     req.AssigneeID,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return err
	}

	if result.AlreadyExisted {
		return c.JSON(http.StatusOK, result.Task)
	}
	return c.JSON(http.StatusCreated, result.Task)
}

// Get handles GET /api/tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task id"
// @Success      200  {object}  domain.Task
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	task, err := h.tasks.GetTask(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Update handles PUT /api/tasks/:id. An assignee that is not an admin may
// change the status only.
//
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Task id"
// @Param        body  body      updateTaskRequest  true  "Fields to change"
// @Success      200   {object}  domain.Task
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req updateTaskRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.UpdateTask(c.Request().Context(), principal(c), id, ports.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// ChangeStatus handles PATCH /api/tasks/:id/status.
//
// @Summary      Change a task's status
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Task id"
// @Param        body  body      changeStatusRequest  true  "New status"
// @Success      200   {object}  domain.Task
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/tasks/{id}/status [patch]
func (h *TaskHandler) ChangeStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req changeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	task, err := h.tasks.ChangeStatus(c.Request().Context(), principal(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, task)
}

// Delete handles DELETE /api/tasks/:id.
//
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  int  true  "Task id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.tasks.DeleteTask(c.Request().Context(), principal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List handles GET /api/tasks.
//
// @Summary      List tasks
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        page       query     int     false  "Zero-based page"
// @Param        size       query     int     false  "Page size (max 100)"
// @Param        direction  query     string  false  "ASC or DESC"
// @Param        sortField  query     string  false  "id, title, status, priority or createdAt"
// @Success      200        {object}  taskPageResponse
// @Failure      400        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	page, err := h.tasks.ListTasks(c.Request().Context(), principal(c), ports.ListTasksInput{
		Page:      c.QueryParam("page"),
		Size:      c.QueryParam("size"),
		Direction: c.QueryParam("direction"),
		SortField: c.QueryParam("sortField"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, taskPageResponse{
		Items:      page.Items,
		Page:       page.Page,
		Size:       page.Size,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	})
}

// ListByAuthor handles GET /api/tasks/author/:authorId.
//
// @Summary      List tasks by author
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        authorId      path      int   true   "Author id"
// @Param        withComments  query     bool  false  "Embed comments"
// @Success      200           {array}   domain.Task
// @Failure      403           {object}  errorResponse
// @Router       /api/tasks/author/{authorId} [get]
func (h *TaskHandler) ListByAuthor(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return err
	}
	withComments, err := queryBool(c, "withComments")
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListByAuthor(c.Request().Context(), principal(c), id, withComments)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// ListByAssignee handles GET /api/tasks/assignee/:assigneeId.
//
// @Summary      List tasks by assignee
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        assigneeId    path      int   true   "Assignee id"
// @Param        withComments  query     bool  false  "Embed comments"
// @Success      200           {array}   domain.Task
// @Failure      403           {object}  errorResponse
// @Router       /api/tasks/assignee/{assigneeId} [get]
func (h *TaskHandler) ListByAssignee(c echo.Context) error {
	id, err := pathID(c, "assigneeId")
	if err != nil {
		return err
	}
	withComments, err := queryBool(c, "withComments")
	if err != nil {
		return err
	}
	tasks, err := h.tasks.ListByAssignee(c.Request().Context(), principal(c), id, withComments)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tasks)
}

// History handles GET /api/tasks/:id/history.
//
// @Summary      Task audit trail
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Task id"
// @Success      200  {array}   taskEventResponse
// @Failure      403  {object}  errorResponse
// @Router       /api/tasks/{id}/history [get]
func (h *TaskHandler) History(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	events, err := h.tasks.History(c.Request().Context(), principal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}
