package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/transport"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

const (
	DefaultCookieName = "board_session"
	APITokenHeader    = "x-api-token"

	sessionKey = "session"
	modeKey    = "auth_mode"
)

const (
	ModeOpen    = "open"
	ModeToken   = "token"
	ModeSession = "session"
)

type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*service.SessionInfo, error)
}

// Authorizer admits a request that carries the static API token or a valid session
// cookie. With no token configured every request is admitted.
type Authorizer struct {
	APIToken   string
	Sessions   SessionValidator
	CookieName string
}

func NewAuthorizer(apiToken string, sessions SessionValidator) *Authorizer {
	return &Authorizer{APIToken: apiToken, Sessions: sessions, CookieName: DefaultCookieName}
}

// WithToken returns a copy that checks token instead of the configured one.
func (a *Authorizer) WithToken(token string) *Authorizer {
	cp := *a
	cp.APIToken = token
	return &cp
}

func (a *Authorizer) cookieName() string {
	if a.CookieName == "" {
		return DefaultCookieName
	}
	return a.CookieName
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "Unauthorized"})
}

func internalError(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, transport.ErrorResponse{Error: "Internal server error"})
}

func reject(c echo.Context, l *slog.Logger, err error) error {
	if errors.Is(err, service.ErrUnauthorized) {
		l.Warn("auth_rejected", "status", 401, "error", err)
		return unauthorized(c)
	}
	l.Error("auth_error", "status", 500, "reason", "cannot validate session", "error", err)
	return internalError(c)
}

// PresentedToken returns the bearer token or the x-api-token header value.
func PresentedToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.Header.Get(APITokenHeader)
}

func (a *Authorizer) tokenMatches(candidate string) bool {
	if candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.APIToken)) == 1
}

func (a *Authorizer) session(c echo.Context) (*service.SessionInfo, error) {
	ck, err := c.Cookie(a.cookieName())
	if err != nil || ck.Value == "" {
		return nil, nil
	}
	return a.Sessions.ValidateSession(c.Request().Context(), ck.Value)
}

func (a *Authorizer) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "require_auth")

		if a.APIToken == "" {
			c.Set(modeKey, ModeOpen)
			if info, err := a.session(c); err == nil && info != nil {
				c.Set(sessionKey, info)
			}
			return next(c)
		}
		if a.tokenMatches(PresentedToken(c.Request())) {
			c.Set(modeKey, ModeToken)
			return next(c)
		}

		info, err := a.session(c)
		if err == nil {
			err = service.Authorize(info, false)
		}
		if err != nil {
			return reject(c, l, err)
		}

		c.Set(modeKey, ModeSession)
		c.Set(sessionKey, info)
		return next(c)
	}
}

// RequireAdmin always resolves the session cookie; the static token alone does not
// grant admin rights.
func (a *Authorizer) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "require_admin")

		info, err := a.session(c)
		if err == nil {
			err = service.Authorize(info, true)
		}
		if err != nil {
			return reject(c, l, err)
		}

		c.Set(sessionKey, info)
		return next(c)
	}
}

func SessionFrom(c echo.Context) *service.SessionInfo {
	info, _ := c.Get(sessionKey).(*service.SessionInfo)
	return info
}

func ModeFrom(c echo.Context) string {
	mode, _ := c.Get(modeKey).(string)
	return mode
}

// Actor names the caller for createdBy and author fields.
func Actor(c echo.Context) string {
	if info := SessionFrom(c); info != nil && info.Name != "" {
		return info.Name
	}
	return service.APIAuthor
}
