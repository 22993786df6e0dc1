package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/taskboard/internal/models"
)

// DeleteGuard decides, inside the deleting transaction, whether target may be removed
// given the current number of admin passcodes.
type DeleteGuard func(target *models.Passcode, adminCount int) error

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (r *GormRepo) CountPasscodes(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Passcode{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// CreateFirstPasscode inserts p only while the passcode table is empty. It reports
// false without error when another passcode already exists.
func (r *GormRepo) CreateFirstPasscode(ctx context.Context, p *models.Passcode) (bool, error) {
	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Passcode{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(p).Error; err != nil {
			if isUniqueViolation(err) {
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	return created, err
}

func (r *GormRepo) CreatePasscode(ctx context.Context, p *models.Passcode) error {
	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *GormRepo) FindPasscodeByHash(ctx context.Context, codeHash string) (*models.Passcode, error) {
	var p models.Passcode
	if err := r.DB.WithContext(ctx).Where("code_hash = ?", codeHash).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetPasscode(ctx context.Context, id string) (*models.Passcode, error) {
	var p models.Passcode
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) ListPasscodes(ctx context.Context) ([]models.Passcode, error) {
	var items []models.Passcode
	if err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) TouchPasscode(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.Passcode{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}

// DeletePasscode runs guard and the delete in one transaction. Sessions owned by the
// passcode are removed with it.
func (r *GormRepo) DeletePasscode(ctx context.Context, id string, guard DeleteGuard) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var adminIDs []string
		if err := lockForUpdate(tx).Model(&models.Passcode{}).
			Where("is_admin = ?", true).
			Pluck("id", &adminIDs).Error; err != nil {
			return err
		}

		var target models.Passcode
		if err := lockForUpdate(tx).Where("id = ?", id).First(&target).Error; err != nil {
			return err
		}

		if guard != nil {
			if err := guard(&target, len(adminIDs)); err != nil {
				return err
			}
		}

		if err := tx.Where("passcode_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Passcode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
