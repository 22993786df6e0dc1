package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/pkg/hash"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

const maxPasscodeNameLen = 100

type PasscodeStore interface {
	ListPasscodes(ctx context.Context) ([]models.Passcode, error)
	FindPasscodeByHash(ctx context.Context, codeHash string) (*models.Passcode, error)
	CreatePasscode(ctx context.Context, p *models.Passcode) error
	DeletePasscode(ctx context.Context, id string, guard repo.DeleteGuard) error
}

type PasscodeService struct {
	Repo PasscodeStore
}

func (s *PasscodeService) List(ctx context.Context) ([]models.Passcode, error) {
	items, err := s.Repo.ListPasscodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list passcodes: %w", err)
	}
	return items, nil
}

func (s *PasscodeService) Create(ctx context.Context, code, name string, isAdmin bool) (*models.Passcode, error) {
	l := logging.FromContext(ctx).With("svc", "passcode.create")

	name = strings.TrimSpace(name)
	if !hash.ValidCode(code) {
		return nil, fmt.Errorf("code must be 6 digits: %w", ErrMalformedInput)
	}
	if name == "" || utf8.RuneCountInString(name) > maxPasscodeNameLen {
		return nil, fmt.Errorf("name must be 1-%d characters: %w", maxPasscodeNameLen, ErrMalformedInput)
	}

	digest := hash.Passcode(code)
	if _, err := s.Repo.FindPasscodeByHash(ctx, digest); err == nil {
		return nil, ErrDuplicateCredential
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find passcode: %w", err)
	}

	p := &models.Passcode{CodeHash: digest, Name: name, IsAdmin: isAdmin}
	if err := s.Repo.CreatePasscode(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateCredential
		}
		return nil, fmt.Errorf("create passcode: %w", err)
	}

	l.Info("passcode_created", "passcode_id", p.ID, "is_admin", isAdmin)
	return p, nil
}

// Delete removes the passcode and its sessions. The last remaining admin passcode
// cannot be removed; the admin count is read in the same transaction as the delete.
func (s *PasscodeService) Delete(ctx context.Context, id string) error {
	l := logging.FromContext(ctx).With("svc", "passcode.delete", "passcode_id", id)

	err := s.Repo.DeletePasscode(ctx, id, func(target *models.Passcode, adminCount int) error {
		if target.IsAdmin && adminCount <= 1 {
			return ErrLastAdminProtected
		}
		return nil
	})
	switch {
	case err == nil:
		l.Info("passcode_deleted")
		return nil
	case errors.Is(err, ErrLastAdminProtected):
		l.Warn("passcode_delete_refused", "reason", "last admin")
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("passcode %s: %w", id, ErrNotFound)
	default:
		return fmt.Errorf("delete passcode: %w", err)
	}
}
