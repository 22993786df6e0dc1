package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
)

type TaskFilter struct {
	ColumnID string
	EpicID   string
}

func (f TaskFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ColumnID != "" {
		q = q.Where("column_id = ?", f.ColumnID)
	}
	if f.EpicID != "" {
		q = q.Where("epic_id = ?", f.EpicID)
	}
	return q
}

func (r *GormRepo) ListTasks(ctx context.Context, f TaskFilter, offset, limit int) (int64, []models.Task, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Task{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Task
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Task{})).
		Order("column_id ASC, position ASC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.DB.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *GormRepo) TasksByIDs(ctx context.Context, ids []string) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}
	var items []models.Task
	if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.Task, len(items))
	for _, t := range items {
		byID[t.ID] = t
	}
	out := make([]models.Task, 0, len(items))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// CreateTask appends the task to the end of its column.
func (r *GormRepo) CreateTask(ctx context.Context, task *models.Task) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextPosition(tx.Model(&models.Task{}).Where("column_id = ?", task.ColumnID))
		if err != nil {
			return err
		}
		task.Position = next
		return tx.Omit("Column", "Epic", "Comments", "Images").Create(task).Error
	})
}

func (r *GormRepo) UpdateTask(ctx context.Context, id string, fields map[string]any) (*models.Task, error) {
	if len(fields) > 0 {
		res := r.DB.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(fields)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
	}
	return r.GetTask(ctx, id)
}

// MoveTask places the task at position (clamped) in columnID and renumbers the
// affected columns so positions stay contiguous from zero.
func (r *GormRepo) MoveTask(ctx context.Context, id, columnID string, position int) (*models.Task, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := lockForUpdate(tx).Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}

		var target []models.Task
		if err := lockForUpdate(tx).
			Where("column_id = ? AND id <> ?", columnID, id).
			Order("position ASC").
			Find(&target).Error; err != nil {
			return err
		}

		if position < 0 {
			position = 0
		}
		if position > len(target) {
			position = len(target)
		}

		ordered := make([]string, 0, len(target)+1)
		for i, t := range target {
			if i == position {
				ordered = append(ordered, id)
			}
			ordered = append(ordered, t.ID)
		}
		if position == len(target) {
			ordered = append(ordered, id)
		}

		if err := tx.Model(&models.Task{}).Where("id = ?", id).
			Update("column_id", columnID).Error; err != nil {
			return err
		}
		if err := renumber(tx, ordered); err != nil {
			return err
		}

		if task.ColumnID != columnID {
			var source []string
			if err := tx.Model(&models.Task{}).
				Where("column_id = ?", task.ColumnID).
				Order("position ASC").
				Pluck("id", &source).Error; err != nil {
				return err
			}
			return renumber(tx, source)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetTask(ctx, id)
}

func renumber(tx *gorm.DB, ids []string) error {
	for i, id := range ids {
		if err := tx.Model(&models.Task{}).Where("id = ?", id).
			UpdateColumn("position", i).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteTask removes the task with its comments and images and closes the gap it
// leaves in its column.
func (r *GormRepo) DeleteTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&task).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Task{}).
			Where("column_id = ? AND position > ?", task.ColumnID, task.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// SearchTasks is the store-side fallback used when no search index is configured.
func (r *GormRepo) SearchTasks(ctx context.Context, q string, offset, limit int) (int64, []models.Task, error) {
	pattern := "%" + strings.ToLower(escapeLike(q)) + "%"
	where := "LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\'"

	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Task{}).Where(where, pattern, pattern).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Task
	if err := r.DB.WithContext(ctx).Model(&models.Task{}).
		Where(where, pattern, pattern).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
