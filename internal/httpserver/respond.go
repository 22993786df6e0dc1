package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/transport"
)

func CreateCookie(name, value, path string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, transport.ErrorResponse{Error: msg})
}

// statusFor maps service errors to a status code and the message shown to clients.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMalformedInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrDuplicateCredential):
		return http.StatusBadRequest, "Passcode already exists"
	case errors.Is(err, service.ErrLastAdminProtected):
		return http.StatusBadRequest, "Cannot delete the last admin passcode"
	case errors.Is(err, service.ErrInvalidCredential):
		return http.StatusUnauthorized, "Invalid passcode"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "Resource is still in use"
	case errors.Is(err, service.ErrTokenCollision):
		return http.StatusServiceUnavailable, "Please retry"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// fail logs err under event and writes the mapped error response.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		l.Error(event, "status", status, "error", err)
	} else {
		l.Warn(event, "status", status, "reason", msg, "error", err)
	}
	return errorJSON(c, status, msg)
}
