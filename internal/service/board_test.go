package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/taskboard/internal/events"
	"github.com/Skotchmaster/taskboard/internal/models"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/search"
	"github.com/Skotchmaster/taskboard/internal/testutil"
	"github.com/Skotchmaster/taskboard/internal/transport"
)

type recordedEvents struct {
	mu    sync.Mutex
	types []string
}

func (r *recordedEvents) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, ev.Type)
}

type stubIndex struct {
	indexed map[string]string
	deleted []string
	hits    []string
	err     error
}

func (s *stubIndex) IndexTask(_ context.Context, t *models.Task) error {
	s.indexed[t.ID] = t.Title
	return nil
}

func (s *stubIndex) DeleteTask(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubIndex) Search(context.Context, string, int, int) (int64, []string, error) {
	if s.err != nil {
		return 0, nil, s.err
	}
	return int64(len(s.hits)), s.hits, nil
}

func newBoard(t *testing.T) (*BoardService, *recordedEvents, *stubIndex) {
	t.Helper()
	ev := &recordedEvents{}
	idx := &stubIndex{indexed: map[string]string{}}
	svc := &BoardService{Repo: &repo.GormRepo{DB: testutil.NewDB(t)}, Events: ev, Index: idx}
	require.NoError(t, svc.EnsureDefaultColumns(context.Background()))
	return svc, ev, idx
}

func columnByName(t *testing.T, svc *BoardService, name string) string {
	t.Helper()
	cols, err := svc.ListColumns(context.Background())
	require.NoError(t, err)
	for _, c := range cols {
		if c.Name == name {
			return c.ID
		}
	}
	t.Fatalf("column %q not found", name)
	return ""
}

func TestEnsureDefaultColumns_SeedsOnce(t *testing.T) {
	svc, _, _ := newBoard(t)
	ctx := context.Background()

	require.NoError(t, svc.EnsureDefaultColumns(ctx))

	cols, err := svc.ListColumns(ctx)
	require.NoError(t, err)
	require.Len(t, cols, len(DefaultColumns))
	for i, c := range cols {
		assert.Equal(t, DefaultColumns[i], c.Name)
		assert.Equal(t, i, c.Position)
	}
}

func TestColumns_CreateRenameDelete(t *testing.T) {
	svc, ev, _ := newBoard(t)
	ctx := context.Background()

	_, err := svc.CreateColumn(ctx, transport.ColumnRequest{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	col, err := svc.CreateColumn(ctx, transport.ColumnRequest{Name: "Review"})
	require.NoError(t, err)
	assert.Equal(t, len(DefaultColumns), col.Position)

	col, err = svc.RenameColumn(ctx, col.ID, transport.ColumnRequest{Name: "QA"})
	require.NoError(t, err)
	assert.Equal(t, "QA", col.Name)

	_, err = svc.RenameColumn(ctx, "missing", transport.ColumnRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "t", ColumnID: col.ID}, "")
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteColumn(ctx, col.ID), ErrConflict)

	empty := columnByName(t, svc, "Backlog")
	require.NoError(t, svc.DeleteColumn(ctx, empty))
	assert.ErrorIs(t, svc.DeleteColumn(ctx, empty), ErrNotFound)

	assert.Equal(t, []string{events.ColumnCreated, events.ColumnUpdated, events.TaskCreated, events.ColumnDeleted}, ev.types)
}

func TestEpics_Lifecycle(t *testing.T) {
	svc, _, _ := newBoard(t)
	ctx := context.Background()

	epic, err := svc.CreateEpic(ctx, transport.CreateEpicRequest{Name: "Launch"})
	require.NoError(t, err)
	assert.Equal(t, DefaultEpicColor, epic.Color)

	_, err = svc.CreateEpic(ctx, transport.CreateEpicRequest{Name: "Bad", Color: "red"})
	assert.ErrorIs(t, err, ErrValidation)

	color := "#00FF00"
	epic, err = svc.UpdateEpic(ctx, epic.ID, transport.PatchEpicRequest{Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Launch", epic.Name)
	assert.Equal(t, color, epic.Color)

	blank := ""
	_, err = svc.UpdateEpic(ctx, epic.ID, transport.PatchEpicRequest{Name: &blank})
	assert.ErrorIs(t, err, ErrValidation)

	task, err := svc.CreateTask(ctx, transport.CreateTaskRequest{
		Title: "t", ColumnID: columnByName(t, svc, "To Do"), EpicID: &epic.ID,
	}, "Admin")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEpic(ctx, epic.ID))
	got, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EpicID)

	_, err = svc.GetEpic(ctx, epic.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTask_Validation(t *testing.T) {
	svc, _, _ := newBoard(t)
	ctx := context.Background()
	todo := columnByName(t, svc, "To Do")
	missing := "missing"

	tests := []struct {
		name string
		req  transport.CreateTaskRequest
	}{
		{"empty title", transport.CreateTaskRequest{Title: " ", ColumnID: todo}},
		{"long title", transport.CreateTaskRequest{Title: strings.Repeat("x", maxTitleLen+1), ColumnID: todo}},
		{"bad priority", transport.CreateTaskRequest{Title: "t", ColumnID: todo, Priority: "urgent"}},
		{"no column", transport.CreateTaskRequest{Title: "t"}},
		{"unknown column", transport.CreateTaskRequest{Title: "t", ColumnID: "nope"}},
		{"unknown epic", transport.CreateTaskRequest{Title: "t", ColumnID: todo, EpicID: &missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, tt.req, "")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTasks_CreateUpdateMoveDelete(t *testing.T) {
	svc, ev, idx := newBoard(t)
	ctx := context.Background()
	todo := columnByName(t, svc, "To Do")
	done := columnByName(t, svc, "Done")

	a, err := svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "a", ColumnID: todo}, "")
	require.NoError(t, err)
	assert.Equal(t, APIAuthor, a.CreatedBy)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, 0, a.Position)

	b, err := svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "b", ColumnID: todo, Priority: "high"}, "Guest")
	require.NoError(t, err)
	assert.Equal(t, "Guest", b.CreatedBy)
	assert.Equal(t, 1, b.Position)

	title := "a2"
	a, err = svc.UpdateTask(ctx, a.ID, transport.PatchTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "a2", a.Title)
	assert.Equal(t, "a2", idx.indexed[a.ID])

	_, err = svc.UpdateTask(ctx, "missing", transport.PatchTaskRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	moved, err := svc.MoveTask(ctx, a.ID, transport.MoveTaskRequest{ColumnID: done, Position: 0})
	require.NoError(t, err)
	assert.Equal(t, done, moved.ColumnID)

	b, err = svc.GetTask(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, b.Position, "source column is resequenced")

	_, err = svc.MoveTask(ctx, a.ID, transport.MoveTaskRequest{ColumnID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddComment(ctx, a.ID, "Guest", transport.CommentRequest{Body: "looks good"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTask(ctx, a.ID))
	assert.Equal(t, []string{a.ID}, idx.deleted)

	_, err = svc.GetTask(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteTask(ctx, a.ID), ErrNotFound)

	assert.Contains(t, ev.types, events.TaskMoved)
	assert.Contains(t, ev.types, events.TaskDeleted)
}

func TestSearchTasks_IndexAndFallback(t *testing.T) {
	svc, _, idx := newBoard(t)
	ctx := context.Background()
	todo := columnByName(t, svc, "To Do")

	a, err := svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "Fix login", ColumnID: todo}, "")
	require.NoError(t, err)
	b, err := svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "Docs", ColumnID: todo}, "")
	require.NoError(t, err)

	_, _, err = svc.SearchTasks(ctx, "  ", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)

	idx.hits = []string{b.ID, a.ID}
	total, items, err := svc.SearchTasks(ctx, "anything", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Docs", items[0].Title)

	idx.err = errors.New("cluster down")
	total, items, err = svc.SearchTasks(ctx, "login", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, a.ID, items[0].ID)

	svc.Index = search.Noop{}
	total, _, err = svc.SearchTasks(ctx, "docs", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestCommentsAndImages(t *testing.T) {
	svc, _, _ := newBoard(t)
	ctx := context.Background()
	task, err := svc.CreateTask(ctx, transport.CreateTaskRequest{Title: "t", ColumnID: columnByName(t, svc, "To Do")}, "")
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, task.ID, "Guest", transport.CommentRequest{Body: " "})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.AddComment(ctx, "missing", "Guest", transport.CommentRequest{Body: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := svc.AddComment(ctx, task.ID, "", transport.CommentRequest{Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, APIAuthor, c.Author)

	items, err := svc.ListComments(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	require.NoError(t, svc.DeleteComment(ctx, c.ID))
	assert.ErrorIs(t, svc.DeleteComment(ctx, c.ID), ErrNotFound)

	for _, bad := range []string{"", "ftp://x/y.png", "/relative.png", "https://"} {
		_, err = svc.AddImage(ctx, task.ID, transport.ImageRequest{URL: bad})
		assert.ErrorIs(t, err, ErrValidation, "url %q", bad)
	}

	img, err := svc.AddImage(ctx, task.ID, transport.ImageRequest{URL: "https://cdn.example.com/a.png", Caption: "mock"})
	require.NoError(t, err)

	full, err := svc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, full.Images, 1)
	assert.Equal(t, "mock", full.Images[0].Caption)

	require.NoError(t, svc.DeleteImage(ctx, img.ID))
	assert.ErrorIs(t, svc.DeleteImage(ctx, img.ID), ErrNotFound)
}
