package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/pkg/hash"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

const (
	SessionTTL = 30 * 24 * time.Hour

	setupAdminName = "Admin"
)

type CredentialStore interface {
	CountPasscodes(ctx context.Context) (int64, error)
	CreateFirstPasscode(ctx context.Context, p *models.Passcode) (bool, error)
	FindPasscodeByHash(ctx context.Context, codeHash string) (*models.Passcode, error)
	TouchPasscode(ctx context.Context, id string, at time.Time) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	FindSessionByToken(ctx context.Context, token string) (*models.Session, error)
	DeleteSessionByToken(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type AuthService struct {
	Credentials CredentialStore
	Sessions    SessionStore

	// Now and NewToken default to time.Now and NewSessionToken.
	Now      func() time.Time
	NewToken func() (string, error)
}

func NewAuthService(r *repo.GormRepo) *AuthService {
	return &AuthService{Credentials: r, Sessions: r}
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	IsAdmin   bool
	Name      string
}

type SessionInfo struct {
	Authenticated bool
	IsAdmin       bool
	Name          string
	PasscodeID    string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *AuthService) token() (string, error) {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return NewSessionToken()
}

func (s *AuthService) HasAnyCredential(ctx context.Context) (bool, error) {
	n, err := s.Credentials.CountPasscodes(ctx)
	if err != nil {
		return false, fmt.Errorf("count passcodes: %w", err)
	}
	return n > 0, nil
}

// Login exchanges a passcode for a new session. While no passcode exists the first
// well-formed code becomes the admin passcode.
func (s *AuthService) Login(ctx context.Context, code string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	exists, err := s.HasAnyCredential(ctx)
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot count passcodes", "error", err)
		return nil, err
	}

	if !exists {
		if !hash.ValidCode(code) {
			l.Warn("login_failed", "status", 400, "reason", "setup code must be 6 digits")
			return nil, fmt.Errorf("setup code: %w", ErrMalformedInput)
		}
		created, err := s.Credentials.CreateFirstPasscode(ctx, &models.Passcode{
			CodeHash: hash.Passcode(code),
			Name:     setupAdminName,
			IsAdmin:  true,
		})
		if err != nil {
			l.Error("login_error", "status", 500, "reason", "cannot create first passcode", "error", err)
			return nil, fmt.Errorf("create first passcode: %w", err)
		}
		if created {
			l.Info("setup_completed")
		}
	}

	p, err := s.Credentials.FindPasscodeByHash(ctx, hash.Passcode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown passcode")
			return nil, ErrInvalidCredential
		}
		l.Error("login_error", "status", 500, "reason", "cannot look up passcode", "error", err)
		return nil, fmt.Errorf("find passcode: %w", err)
	}

	now := s.now()
	if err := s.Credentials.TouchPasscode(ctx, p.ID, now); err != nil {
		l.Warn("touch_passcode_failed", "passcode_id", p.ID, "error", err)
	}

	token, err := s.token()
	if err != nil {
		l.Error("login_error", "status", 500, "reason", "cannot generate token", "error", err)
		return nil, err
	}

	sess := &models.Session{
		PasscodeID: p.ID,
		Token:      token,
		ExpiresAt:  now.Add(SessionTTL),
		CreatedAt:  now,
	}
	if err := s.Sessions.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("login_failed", "status", 503, "reason", "token collision")
			return nil, ErrTokenCollision
		}
		l.Error("login_error", "status", 500, "reason", "cannot create session", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}

	l.Info("login_successful", "passcode_id", p.ID, "is_admin", p.IsAdmin)
	return &LoginResult{
		Token:     token,
		ExpiresAt: sess.ExpiresAt,
		IsAdmin:   p.IsAdmin,
		Name:      p.Name,
	}, nil
}

// ValidateSession returns nil without error when the token is empty, unknown or expired.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := s.Sessions.FindSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return nil, nil
	}
	// A session whose passcode row is gone grants nothing.
	if sess.Passcode.ID == "" {
		return nil, nil
	}

	return &SessionInfo{
		Authenticated: true,
		IsAdmin:       sess.Passcode.IsAdmin,
		Name:          sess.Passcode.Name,
		PasscodeID:    sess.PasscodeID,
	}, nil
}

// Authorize returns ErrUnauthorized unless info is an authenticated session. With
// admin set the session must also belong to an admin passcode.
func Authorize(info *SessionInfo, admin bool) error {
	if info == nil || !info.Authenticated {
		return ErrUnauthorized
	}
	if admin && !info.IsAdmin {
		return fmt.Errorf("admin passcode required: %w", ErrUnauthorized)
	}
	return nil
}

func (s *AuthService) LogOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.Sessions.DeleteSessionByToken(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.Sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
