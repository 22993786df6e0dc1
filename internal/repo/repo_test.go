package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/models"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/testutil"
)

var errRefused = errors.New("refused")

func newRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	return &repo.GormRepo{DB: testutil.NewDB(t)}
}

func mustPasscode(t *testing.T, r *repo.GormRepo, hash, name string, admin bool) *models.Passcode {
	t.Helper()
	p := &models.Passcode{CodeHash: hash, Name: name, IsAdmin: admin}
	require.NoError(t, r.CreatePasscode(context.Background(), p))
	return p
}

func TestCreateFirstPasscode_OnlyWhenEmpty(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	created, err := r.CreateFirstPasscode(ctx, &models.Passcode{CodeHash: "h1", Name: "Admin", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.CreateFirstPasscode(ctx, &models.Passcode{CodeHash: "h2", Name: "Admin", IsAdmin: true})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := r.CountPasscodes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreatePasscode_DuplicateHash(t *testing.T) {
	r := newRepo(t)
	mustPasscode(t, r, "same", "A", true)

	err := r.CreatePasscode(context.Background(), &models.Passcode{CodeHash: "same", Name: "B"})
	assert.ErrorIs(t, err, repo.ErrDuplicate)
}

func TestDeletePasscode_GuardAndCascade(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	admin := mustPasscode(t, r, "h-admin", "Admin", true)
	guest := mustPasscode(t, r, "h-guest", "Guest", false)

	require.NoError(t, r.CreateSession(ctx, &models.Session{
		PasscodeID: guest.ID, Token: "tok-guest", ExpiresAt: time.Now().Add(time.Hour),
	}))

	var seenCount int
	err := r.DeletePasscode(ctx, admin.ID, func(target *models.Passcode, adminCount int) error {
		seenCount = adminCount
		assert.Equal(t, admin.ID, target.ID)
		return errRefused
	})
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, 1, seenCount)
	_, err = r.GetPasscode(ctx, admin.ID)
	require.NoError(t, err, "refused delete must leave the row")

	require.NoError(t, r.DeletePasscode(ctx, guest.ID, nil))
	_, err = r.FindSessionByToken(ctx, "tok-guest")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = r.DeletePasscode(ctx, "missing", nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessions_FindDeletePurge(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := mustPasscode(t, r, "h", "Guest", false)
	now := time.Now().UTC()

	require.NoError(t, r.CreateSession(ctx, &models.Session{PasscodeID: p.ID, Token: "live", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, r.CreateSession(ctx, &models.Session{PasscodeID: p.ID, Token: "dead", ExpiresAt: now.Add(-time.Hour)}))

	err := r.CreateSession(ctx, &models.Session{PasscodeID: p.ID, Token: "live", ExpiresAt: now})
	assert.ErrorIs(t, err, repo.ErrDuplicate)

	s, err := r.FindSessionByToken(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "Guest", s.Passcode.Name)

	n, err := r.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, r.DeleteSessionByToken(ctx, "live"))
	require.NoError(t, r.DeleteSessionByToken(ctx, "live"))
	_, err = r.FindSessionByToken(ctx, "live")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTouchPasscode(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := mustPasscode(t, r, "h", "Guest", false)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, r.TouchPasscode(ctx, p.ID, at))

	got, err := r.GetPasscode(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, at.Equal(got.LastUsedAt.UTC()))
}

func columnIDs(t *testing.T, r *repo.GormRepo, columnID string) []string {
	t.Helper()
	_, items, err := r.ListTasks(context.Background(), repo.TaskFilter{ColumnID: columnID}, 0, 100)
	require.NoError(t, err)
	out := make([]string, 0, len(items))
	for i, it := range items {
		require.Equal(t, i, it.Position, "positions must be contiguous")
		out = append(out, it.Title)
	}
	return out
}

func TestTasks_CreateMoveDelete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	cols, err := r.CreateColumns(ctx, "To Do", "Done")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, 0, cols[0].Position)
	assert.Equal(t, 1, cols[1].Position)
	todo, done := cols[0].ID, cols[1].ID

	tasks := map[string]*models.Task{}
	for _, title := range []string{"a", "b", "c"} {
		task := &models.Task{Title: title, ColumnID: todo, Priority: models.PriorityMedium}
		require.NoError(t, r.CreateTask(ctx, task))
		tasks[title] = task
	}
	assert.Equal(t, []string{"a", "b", "c"}, columnIDs(t, r, todo))

	_, err = r.MoveTask(ctx, tasks["c"].ID, todo, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, columnIDs(t, r, todo))

	moved, err := r.MoveTask(ctx, tasks["a"].ID, done, 99)
	require.NoError(t, err)
	assert.Equal(t, done, moved.ColumnID)
	assert.Equal(t, []string{"c", "b"}, columnIDs(t, r, todo))
	assert.Equal(t, []string{"a"}, columnIDs(t, r, done))

	require.NoError(t, r.CreateComment(ctx, &models.Comment{TaskID: tasks["c"].ID, Author: "x", Body: "hi"}))
	require.NoError(t, r.CreateImage(ctx, &models.TaskImage{TaskID: tasks["c"].ID, URL: "https://img/1.png"}))

	full, err := r.GetTask(ctx, tasks["c"].ID)
	require.NoError(t, err)
	assert.Len(t, full.Comments, 1)
	assert.Len(t, full.Images, 1)

	err = r.DeleteColumn(ctx, todo)
	assert.ErrorIs(t, err, repo.ErrInUse)

	deleted, err := r.DeleteTask(ctx, tasks["c"].ID)
	require.NoError(t, err)
	assert.Equal(t, "c", deleted.Title)
	assert.Equal(t, []string{"b"}, columnIDs(t, r, todo))

	comments, err := r.ListComments(ctx, tasks["c"].ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	_, err = r.DeleteTask(ctx, tasks["c"].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEpics_DeleteDetachesTasks(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	cols, err := r.CreateColumns(ctx, "To Do")
	require.NoError(t, err)

	epic := &models.Epic{Name: "Launch", Color: "#112233"}
	require.NoError(t, r.CreateEpic(ctx, epic))

	task := &models.Task{Title: "t", ColumnID: cols[0].ID, EpicID: &epic.ID, Priority: models.PriorityHigh}
	require.NoError(t, r.CreateTask(ctx, task))

	updated, err := r.UpdateEpic(ctx, epic.ID, map[string]any{"name": "Launch v2"})
	require.NoError(t, err)
	assert.Equal(t, "Launch v2", updated.Name)

	require.NoError(t, r.DeleteEpic(ctx, epic.ID))

	got, err := r.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EpicID)

	assert.ErrorIs(t, r.DeleteEpic(ctx, epic.ID), gorm.ErrRecordNotFound)
}

func TestSearchTasks_Like(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	cols, err := r.CreateColumns(ctx, "To Do")
	require.NoError(t, err)

	for _, title := range []string{"Fix login bug", "Write docs", "100% coverage"} {
		require.NoError(t, r.CreateTask(ctx, &models.Task{Title: title, ColumnID: cols[0].ID, Priority: models.PriorityLow}))
	}

	total, items, err := r.SearchTasks(ctx, "LOGIN", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Fix login bug", items[0].Title)

	total, _, err = r.SearchTasks(ctx, "%", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}
