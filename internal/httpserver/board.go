package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/taskboard/internal/middleware/auth"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/transport"
	"github.com/Skotchmaster/taskboard/internal/util"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

type BoardHTTP struct {
	Svc *service.BoardService
}

func (h *BoardHTTP) ListColumns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "column.list")

	items, err := h.Svc.ListColumns(ctx)
	if err != nil {
		return fail(c, l, "list_columns_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BoardHTTP) CreateColumn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "column.create")

	var req transport.ColumnRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_column_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	col, err := h.Svc.CreateColumn(ctx, req)
	if err != nil {
		return fail(c, l, "create_column_error", err)
	}
	return c.JSON(http.StatusCreated, col)
}

func (h *BoardHTTP) RenameColumn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "column.rename")

	var req transport.ColumnRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("rename_column_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	col, err := h.Svc.RenameColumn(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, l, "rename_column_error", err)
	}
	return c.JSON(http.StatusOK, col)
}

func (h *BoardHTTP) DeleteColumn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "column.delete")

	if err := h.Svc.DeleteColumn(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_column_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardHTTP) ListEpics(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "epic.list")

	items, err := h.Svc.ListEpics(ctx)
	if err != nil {
		return fail(c, l, "list_epics_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BoardHTTP) GetEpic(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "epic.get")

	epic, err := h.Svc.GetEpic(ctx, c.Param("id"))
	if err != nil {
		return fail(c, l, "get_epic_error", err)
	}
	return c.JSON(http.StatusOK, epic)
}

func (h *BoardHTTP) CreateEpic(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "epic.create")

	var req transport.CreateEpicRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_epic_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	epic, err := h.Svc.CreateEpic(ctx, req)
	if err != nil {
		return fail(c, l, "create_epic_error", err)
	}
	return c.JSON(http.StatusCreated, epic)
}

func (h *BoardHTTP) UpdateEpic(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "epic.update")

	var req transport.PatchEpicRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_epic_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	epic, err := h.Svc.UpdateEpic(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, l, "update_epic_error", err)
	}
	return c.JSON(http.StatusOK, epic)
}

func (h *BoardHTTP) DeleteEpic(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "epic.delete")

	if err := h.Svc.DeleteEpic(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_epic_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func pageResponse(c echo.Context, page, offset, limit int, total int64, items any) error {
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.NewMeta(page, offset, limit, total),
	})
}

func (h *BoardHTTP) ListTasks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	filter := repo.TaskFilter{ColumnID: c.QueryParam("columnId"), EpicID: c.QueryParam("epicId")}
	total, items, err := h.Svc.ListTasks(ctx, filter, offset, limit)
	if err != nil {
		return fail(c, l, "list_tasks_error", err)
	}
	return pageResponse(c, page, offset, limit, total, items)
}

func (h *BoardHTTP) SearchTasks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.SearchTasks(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(c, l, "search_tasks_error", err)
	}
	return pageResponse(c, page, offset, limit, total, items)
}

func (h *BoardHTTP) GetTask(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.get")

	task, err := h.Svc.GetTask(ctx, c.Param("id"))
	if err != nil {
		return fail(c, l, "get_task_error", err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *BoardHTTP) CreateTask(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.create")

	var req transport.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_task_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	task, err := h.Svc.CreateTask(ctx, req, mwauth.Actor(c))
	if err != nil {
		return fail(c, l, "create_task_error", err)
	}
	l.Info("create_task_success", "task_id", task.ID)
	return c.JSON(http.StatusCreated, task)
}

func (h *BoardHTTP) UpdateTask(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.update")

	var req transport.PatchTaskRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_task_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	task, err := h.Svc.UpdateTask(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, l, "update_task_error", err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *BoardHTTP) MoveTask(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.move")

	var req transport.MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("move_task_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	task, err := h.Svc.MoveTask(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, l, "move_task_error", err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *BoardHTTP) DeleteTask(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "task.delete")

	if err := h.Svc.DeleteTask(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_task_error", err)
	}
	l.Info("delete_task_success")
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardHTTP) ListComments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.list")

	items, err := h.Svc.ListComments(ctx, c.Param("id"))
	if err != nil {
		return fail(c, l, "list_comments_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *BoardHTTP) AddComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.add")

	var req transport.CommentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_comment_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	comment, err := h.Svc.AddComment(ctx, c.Param("id"), mwauth.Actor(c), req)
	if err != nil {
		return fail(c, l, "add_comment_error", err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *BoardHTTP) DeleteComment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "comment.delete")

	if err := h.Svc.DeleteComment(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_comment_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *BoardHTTP) AddImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "image.add")

	var req transport.ImageRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_image_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	img, err := h.Svc.AddImage(ctx, c.Param("id"), req)
	if err != nil {
		return fail(c, l, "add_image_error", err)
	}
	return c.JSON(http.StatusCreated, img)
}

func (h *BoardHTTP) DeleteImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "image.delete")

	if err := h.Svc.DeleteImage(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_image_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}
