package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/taskboard/internal/models"
)

func (r *GormRepo) CreateSession(ctx context.Context, s *models.Session) error {
	if err := r.DB.WithContext(ctx).Omit("Passcode").Create(s).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// FindSessionByToken loads the session together with its owning passcode. Expiry is
// not checked here.
func (r *GormRepo) FindSessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	if err := r.DB.WithContext(ctx).Preload("Passcode").Where("token = ?", token).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	return r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

func (r *GormRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
