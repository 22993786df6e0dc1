package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
)

func (r *GormRepo) ListColumns(ctx context.Context) ([]models.Column, error) {
	var items []models.Column
	if err := r.DB.WithContext(ctx).Order("position ASC, created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetColumn(ctx context.Context, id string) (*models.Column, error) {
	var col models.Column
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&col).Error; err != nil {
		return nil, err
	}
	return &col, nil
}

// CreateColumns appends names after the last existing column, in order.
func (r *GormRepo) CreateColumns(ctx context.Context, names ...string) ([]models.Column, error) {
	out := make([]models.Column, 0, len(names))
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextPosition(tx.Model(&models.Column{}))
		if err != nil {
			return err
		}
		for _, name := range names {
			col := models.Column{Name: name, Position: next}
			if err := tx.Create(&col).Error; err != nil {
				return err
			}
			out = append(out, col)
			next++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *GormRepo) RenameColumn(ctx context.Context, id, name string) (*models.Column, error) {
	res := r.DB.WithContext(ctx).Model(&models.Column{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetColumn(ctx, id)
}

func (r *GormRepo) DeleteColumn(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Task{}).Where("column_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrInUse
		}
		res := tx.Where("id = ?", id).Delete(&models.Column{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
