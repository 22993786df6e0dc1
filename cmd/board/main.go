package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/config"
	"github.com/Skotchmaster/taskboard/internal/events"
	"github.com/Skotchmaster/taskboard/internal/httpserver"
	mwauth "github.com/Skotchmaster/taskboard/internal/middleware/auth"
	"github.com/Skotchmaster/taskboard/internal/middleware/csrf"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/search"
	"github.com/Skotchmaster/taskboard/internal/service"
	pkgdb "github.com/Skotchmaster/taskboard/pkg/db"
	"github.com/Skotchmaster/taskboard/pkg/logging"
	loggingmw "github.com/Skotchmaster/taskboard/pkg/middleware/logging"
)

const sessionPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("board_exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer closeDB(db, log)

	if err := repo.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	r := &repo.GormRepo{DB: db}
	authSvc := service.NewAuthService(r)

	var sinks []events.Sink
	if s := events.NewWebhookSink(cfg.WebhookURL, []byte(cfg.WebhookSecret)); s != nil {
		sinks = append(sinks, s)
	}
	if s := events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic); s != nil {
		sinks = append(sinks, s)
	}
	dispatcher := events.NewDispatcher(log, sinks...)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn("events_close_error", "error", err)
		}
	}()

	var index service.TaskIndex = search.Noop{}
	if cfg.ESURL != "" {
		es, err := search.NewESIndex(ctx, search.Config{
			URL:      cfg.ESURL,
			User:     cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Warn("search_unavailable", "reason", "falling back to database", "error", err)
		} else {
			index = es
		}
	}

	board := &service.BoardService{Repo: r, Events: dispatcher, Index: index}
	if err := board.EnsureDefaultColumns(ctx); err != nil {
		return fmt.Errorf("seed columns: %w", err)
	}

	if cfg.APIToken == "" {
		log.Warn("auth_disabled", "reason", "API_TOKEN is not set, every route is open")
	}
	stopPurge := startSessionPurge(ctx, authSvc, log, sessionPurgeInterval)
	defer stopPurge()

	authz := mwauth.NewAuthorizer(cfg.APIToken, authSvc)

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(log))
	e.Use(middleware.Secure())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowCredentials: true,
			AllowHeaders: []string{
				echo.HeaderContentType, echo.HeaderAuthorization,
				mwauth.APITokenHeader, csrf.DefaultConfig().HeaderName,
			},
		}))
	}
	if cfg.CSRFEnabled {
		e.Use(csrf.Middleware(csrfConfig(cfg)))
	}

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:     &httpserver.AuthHTTP{Svc: authSvc, SecureCookie: cfg.Production()},
		PasscodeHandler: &httpserver.PasscodeHTTP{Svc: &service.PasscodeService{Repo: r}},
		BoardHandler:    &httpserver.BoardHTTP{Svc: board},
		Authorizer:      authz,
		TasksAuthorizer: authz.WithToken(cfg.TasksAPIToken),
		Ready: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("board_listen", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("board_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_error", "error", err)
	}
	return nil
}

func csrfConfig(cfg *config.Config) csrf.Config {
	return csrf.Config{
		Secure:    cfg.Production(),
		SkipPaths: []string{"/api/auth/login", "/api/auth/logout", "/health/live", "/health/ready"},
		Skipper:   csrf.SkipTokenClients(cfg.APIToken, cfg.TasksAPIToken),
	}
}

// startSessionPurge purges expired sessions now and then every interval. The
// returned stop func cancels the loop and waits for a running purge to finish.
func startSessionPurge(ctx context.Context, svc *service.AuthService, log *slog.Logger, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	purge := func() {
		n, err := svc.PurgeExpiredSessions(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("session_purge_error", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("session_purge", "removed", n)
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		purge()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				purge()
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func closeDB(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("db_handle_error", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("db_close_error", "error", err)
	}
}
