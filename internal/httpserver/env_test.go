package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	mwauth "github.com/Skotchmaster/taskboard/internal/middleware/auth"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/service"
	"github.com/Skotchmaster/taskboard/internal/testutil"
	"github.com/Skotchmaster/taskboard/pkg/logging"
	loggingmw "github.com/Skotchmaster/taskboard/pkg/middleware/logging"
)

type testEnv struct {
	T     *testing.T
	E     *echo.Echo
	DB    *gorm.DB
	Board *service.BoardService
}

type envOptions struct {
	APIToken   string
	TasksToken string
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	r := &repo.GormRepo{DB: db}
	authSvc := service.NewAuthService(r)
	board := &service.BoardService{Repo: r}
	require.NoError(t, board.EnsureDefaultColumns(context.Background()))

	tasksToken := opts.TasksToken
	if tasksToken == "" {
		tasksToken = opts.APIToken
	}
	authz := mwauth.NewAuthorizer(opts.APIToken, authSvc)

	e := echo.New()
	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logging.NewWithWriter(io.Discard, "error")))
	Register(e, &Deps{
		AuthHandler:     &AuthHTTP{Svc: authSvc},
		PasscodeHandler: &PasscodeHTTP{Svc: &service.PasscodeService{Repo: r}},
		BoardHandler:    &BoardHTTP{Svc: board},
		Authorizer:      authz,
		TasksAuthorizer: authz.WithToken(tasksToken),
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	return &testEnv{T: t, E: e, DB: db, Board: board}
}

type reqOption func(*http.Request)

func withCookie(ck *http.Cookie) reqOption {
	return func(r *http.Request) {
		if ck != nil {
			r.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
		}
	}
}

func withBearer(tok string) reqOption {
	return func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok) }
}

func (env *testEnv) doJSONRequest(method, path string, body any, opts ...reqOption) *httptest.ResponseRecorder {
	env.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == mwauth.DefaultCookieName {
			return ck
		}
	}
	t.Fatalf("no %s cookie in response", mwauth.DefaultCookieName)
	return nil
}

func (env *testEnv) login(code string) *http.Cookie {
	env.T.Helper()
	rec := env.doJSONRequest(http.MethodPost, "/api/auth/login", map[string]string{"code": code})
	require.Equal(env.T, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(env.T, rec)
}
