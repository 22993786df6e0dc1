package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
)

var (
	ErrDuplicate = errors.New("duplicate key")
	ErrInUse     = errors.New("row still referenced")
)

type GormRepo struct {
	DB *gorm.DB
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// nextPosition returns MAX(position)+1 over the rows selected by q, or 0 when empty.
func nextPosition(q *gorm.DB) (int, error) {
	var maxPos int
	if err := q.Select("COALESCE(MAX(position), -1)").Row().Scan(&maxPos); err != nil {
		return 0, err
	}
	return maxPos + 1, nil
}
