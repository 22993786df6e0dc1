package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/taskboard/internal/middleware/auth"
)

type Deps struct {
	AuthHandler     *AuthHTTP
	PasscodeHandler *PasscodeHTTP
	BoardHandler    *BoardHTTP

	// Authorizer gates the board routes; TasksAuthorizer gates /api/tasks and
	// defaults to Authorizer.
	Authorizer      *mwauth.Authorizer
	TasksAuthorizer *mwauth.Authorizer

	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	tasksAuthz := d.TasksAuthorizer
	if tasksAuthz == nil {
		tasksAuthz = d.Authorizer
	}

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/session", d.AuthHandler.Session)
	auth.POST("/logout", d.AuthHandler.LogOut)

	passcodes := auth.Group("/passcodes", d.Authorizer.RequireAuth, d.Authorizer.RequireAdmin)
	passcodes.GET("", d.PasscodeHandler.List)
	passcodes.POST("", d.PasscodeHandler.Create)
	passcodes.DELETE("/:id", d.PasscodeHandler.Delete)

	board := api.Group("", d.Authorizer.RequireAuth)
	board.GET("/columns", d.BoardHandler.ListColumns)
	board.POST("/columns", d.BoardHandler.CreateColumn)
	board.PATCH("/columns/:id", d.BoardHandler.RenameColumn)
	board.DELETE("/columns/:id", d.BoardHandler.DeleteColumn)

	board.GET("/epics", d.BoardHandler.ListEpics)
	board.POST("/epics", d.BoardHandler.CreateEpic)
	board.GET("/epics/:id", d.BoardHandler.GetEpic)
	board.PATCH("/epics/:id", d.BoardHandler.UpdateEpic)
	board.DELETE("/epics/:id", d.BoardHandler.DeleteEpic)

	board.DELETE("/comments/:id", d.BoardHandler.DeleteComment)
	board.DELETE("/images/:id", d.BoardHandler.DeleteImage)

	tasks := api.Group("/tasks", tasksAuthz.RequireAuth)
	tasks.GET("", d.BoardHandler.ListTasks)
	tasks.POST("", d.BoardHandler.CreateTask)
	tasks.GET("/search", d.BoardHandler.SearchTasks)
	tasks.GET("/:id", d.BoardHandler.GetTask)
	tasks.PATCH("/:id", d.BoardHandler.UpdateTask)
	tasks.DELETE("/:id", d.BoardHandler.DeleteTask)
	tasks.POST("/:id/move", d.BoardHandler.MoveTask)
	tasks.GET("/:id/comments", d.BoardHandler.ListComments)
	tasks.POST("/:id/comments", d.BoardHandler.AddComment)
	tasks.POST("/:id/images", d.BoardHandler.AddImage)
}
