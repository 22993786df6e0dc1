package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
)

func (r *GormRepo) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	var items []models.Comment
	if err := r.DB.WithContext(ctx).Where("task_id = ?", taskID).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) DeleteComment(ctx context.Context, id string) (*models.Comment, error) {
	var c models.Comment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *GormRepo) CreateImage(ctx context.Context, img *models.TaskImage) error {
	return r.DB.WithContext(ctx).Create(img).Error
}

func (r *GormRepo) DeleteImage(ctx context.Context, id string) (*models.TaskImage, error) {
	var img models.TaskImage
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&img).Error; err != nil {
		return nil, err
	}
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.TaskImage{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &img, nil
}
