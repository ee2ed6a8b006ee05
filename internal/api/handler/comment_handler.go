package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskflow/tms/internal/core/ports"
)

// CommentHandler serves /api/tasks/:id/comments.
type CommentHandler struct {
	comments ports.CommentService
}

func NewCommentHandler(comments ports.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Add handles POST /api/tasks/:id/comments.
//
// @Summary      Comment on a task
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int             true  "Task id"
// @Param        body    body      commentRequest  true  "Comment"
// @Success      201     {object}  domain.Comment
// @Failure      400     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Router       /api/tasks/{id}/comments [post]
func (h *CommentHandler) Add(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req commentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.AddComment(c.Request().Context(), principal(c), taskID, req.Content)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, comment)
}

// List handles GET /api/tasks/:id/comments.
//
// @Summary      List a task's comments
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id      path      int  true  "Task id"
// @Success      200     {array}   domain.Comment
// @Failure      404     {object}  errorResponse
// @Router       /api/tasks/{id}/comments [get]
func (h *CommentHandler) List(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	comments, err := h.comments.ListComments(c.Request().Context(), principal(c), taskID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, comments)
}

// Delete handles DELETE /api/tasks/:id/comments/:commentId.
//
// @Summary      Delete a comment
// @Tags         comments
// @Security     BearerAuth
// @Param        id         path  int  true  "Task id"
// @Param        commentId  path  int  true  "Comment id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/tasks/{id}/comments/{commentId} [delete]
func (h *CommentHandler) Delete(c echo.Context) error {
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	commentID, err := pathID(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.comments.DeleteComment(c.Request().Context(), principal(c), taskID, commentID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
