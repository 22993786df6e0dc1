package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/transport"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

type PasscodeHTTP struct {
	Svc *service.PasscodeService
}

func (h *PasscodeHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "passcode.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(c, l, "list_passcodes_error", err)
	}

	out := make([]transport.PasscodeView, 0, len(items))
	for _, p := range items {
		out = append(out, transport.PasscodeView{
			ID:         p.ID,
			Name:       p.Name,
			IsAdmin:    p.IsAdmin,
			CreatedAt:  p.CreatedAt,
			LastUsedAt: p.LastUsedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PasscodeHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "passcode.create")

	var req transport.CreatePasscodeRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_passcode_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	if _, err := h.Svc.Create(ctx, req.Code, req.Name, req.IsAdmin); err != nil {
		return fail(c, l, "create_passcode_error", err)
	}
	return c.JSON(http.StatusOK, transport.SuccessResponse{Success: true})
}

func (h *PasscodeHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "passcode.delete")

	if err := h.Svc.Delete(ctx, c.Param("id")); err != nil {
		return fail(c, l, "delete_passcode_error", err)
	}
	return c.JSON(http.StatusOK, transport.SuccessResponse{Success: true})
}
