package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mwauth "github.com/Skotchmaster/taskboard/internal/middleware/auth"
	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/transport"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieName   string
	SecureCookie bool
}

func (h *AuthHTTP) cookieName() string {
	if h.CookieName == "" {
		return mwauth.DefaultCookieName
	}
	return h.CookieName
}

func (h *AuthHTTP) sessionToken(c echo.Context) string {
	ck, err := c.Cookie(h.cookieName())
	if err != nil {
		return ""
	}
	return ck.Value
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return errorJSON(c, http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Code)
	if err != nil {
		return fail(c, l, "login_failed", err)
	}

	c.SetCookie(CreateCookie(h.cookieName(), res.Token, "/", res.ExpiresAt, h.SecureCookie))
	return c.JSON(http.StatusOK, transport.LoginResponse{Success: true, IsAdmin: res.IsAdmin})
}

func (h *AuthHTTP) Session(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_session")

	info, err := h.Svc.ValidateSession(ctx, h.sessionToken(c))
	if err != nil {
		return fail(c, l, "session_error", err)
	}
	if info != nil {
		isAdmin := info.IsAdmin
		return c.JSON(http.StatusOK, transport.SessionResponse{
			Authenticated: true,
			IsAdmin:       &isAdmin,
			Name:          info.Name,
		})
	}

	exists, err := h.Svc.HasAnyCredential(ctx)
	if err != nil {
		return fail(c, l, "session_error", err)
	}
	return c.JSON(http.StatusOK, transport.SessionResponse{Authenticated: false, NeedsSetup: !exists})
}

// LogOut always succeeds for the client; a failed delete only leaves a row that
// expires on its own.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	if err := h.Svc.LogOut(ctx, h.sessionToken(c)); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot delete session", "error", err)
	}

	c.SetCookie(DeleteCookie(h.cookieName(), "/", h.SecureCookie))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, transport.SuccessResponse{Success: true})
}
