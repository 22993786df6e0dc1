package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/repo"
	pkgdb "github.com/Skotchmaster/taskboard/pkg/db"
)

// NewDB opens a private in-memory sqlite database with every table migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := pkgdb.Open(context.Background(), "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err, "open in-memory db")
	require.NoError(t, repo.Migrate(db), "migrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
