package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
)

func (r *GormRepo) ListEpics(ctx context.Context) ([]models.Epic, error) {
	var items []models.Epic
	if err := r.DB.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetEpic(ctx context.Context, id string) (*models.Epic, error) {
	var epic models.Epic
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&epic).Error; err != nil {
		return nil, err
	}
	return &epic, nil
}

func (r *GormRepo) CreateEpic(ctx context.Context, epic *models.Epic) error {
	return r.DB.WithContext(ctx).Create(epic).Error
}

func (r *GormRepo) UpdateEpic(ctx context.Context, id string, fields map[string]any) (*models.Epic, error) {
	if len(fields) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.Epic{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetEpic(ctx, id)
}

// DeleteEpic detaches the epic's tasks before removing it.
func (r *GormRepo) DeleteEpic(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).Where("epic_id = ?", id).Update("epic_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Epic{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
