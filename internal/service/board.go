package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/Skotchmaster/taskboard/internal/events"
	"github.com/Skotchmaster/taskboard/internal/models"
	"github.com/Skotchmaster/taskboard/internal/repo"
	"github.com/Skotchmaster/taskboard/internal/search"
	"github.com/Skotchmaster/taskboard/internal/transport"
	"github.com/Skotchmaster/taskboard/pkg/logging"
)

const (
	maxTitleLen    = 200
	maxNameLen     = 100
	maxEpicNameLen = 200
	maxCaptionLen  = 200
	maxURLLen      = 2048

	DefaultEpicColor = "#6366f1"

	// APIAuthor is recorded as creator or author when the caller used the static token.
	APIAuthor = "API"
)

var (
	DefaultColumns = []string{"Backlog", "To Do", "In Progress", "Done"}

	hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

type Publisher interface {
	Publish(ctx context.Context, ev events.Event)
}

type TaskIndex interface {
	IndexTask(ctx context.Context, t *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	Search(ctx context.Context, query string, from, size int) (int64, []string, error)
}

type BoardService struct {
	Repo   *repo.GormRepo
	Events Publisher
	Index  TaskIndex
}

func (s *BoardService) publish(ctx context.Context, typ, id string, payload any) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(ctx, events.Event{Type: typ, EntityID: id, Payload: payload})
}

func (s *BoardService) index(ctx context.Context, t *models.Task) {
	if s.Index == nil || t == nil {
		return
	}
	if err := s.Index.IndexTask(ctx, t); err != nil {
		logging.FromContext(ctx).Warn("index_task_failed", "task_id", t.ID, "error", err)
	}
}

func (s *BoardService) unindex(ctx context.Context, id string) {
	if s.Index == nil {
		return
	}
	if err := s.Index.DeleteTask(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("unindex_task_failed", "task_id", id, "error", err)
	}
}

// mapStoreErr translates repository errors into service errors.
func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repo.ErrInUse):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func requireText(field, v string, max int) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s is required: %w", field, ErrValidation)
	}
	if utf8.RuneCountInString(v) > max {
		return "", fmt.Errorf("%s exceeds %d characters: %w", field, max, ErrValidation)
	}
	return v, nil
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}

// Columns

func (s *BoardService) ListColumns(ctx context.Context) ([]models.Column, error) {
	items, err := s.Repo.ListColumns(ctx)
	if err != nil {
		return nil, mapStoreErr("list columns", err)
	}
	return items, nil
}

// EnsureDefaultColumns seeds the default columns when none exist.
func (s *BoardService) EnsureDefaultColumns(ctx context.Context) error {
	items, err := s.Repo.ListColumns(ctx)
	if err != nil {
		return mapStoreErr("list columns", err)
	}
	if len(items) > 0 {
		return nil
	}
	if _, err := s.Repo.CreateColumns(ctx, DefaultColumns...); err != nil {
		return mapStoreErr("seed columns", err)
	}
	logging.FromContext(ctx).Info("default_columns_seeded", "count", len(DefaultColumns))
	return nil
}

func (s *BoardService) CreateColumn(ctx context.Context, req transport.ColumnRequest) (*models.Column, error) {
	name, err := requireText("name", req.Name, maxNameLen)
	if err != nil {
		return nil, err
	}
	cols, err := s.Repo.CreateColumns(ctx, name)
	if err != nil {
		return nil, mapStoreErr("create column", err)
	}
	col := &cols[0]
	s.publish(ctx, events.ColumnCreated, col.ID, col)
	return col, nil
}

func (s *BoardService) RenameColumn(ctx context.Context, id string, req transport.ColumnRequest) (*models.Column, error) {
	name, err := requireText("name", req.Name, maxNameLen)
	if err != nil {
		return nil, err
	}
	col, err := s.Repo.RenameColumn(ctx, id, name)
	if err != nil {
		return nil, mapStoreErr("rename column", err)
	}
	s.publish(ctx, events.ColumnUpdated, col.ID, col)
	return col, nil
}

func (s *BoardService) DeleteColumn(ctx context.Context, id string) error {
	if err := s.Repo.DeleteColumn(ctx, id); err != nil {
		return mapStoreErr("delete column", err)
	}
	s.publish(ctx, events.ColumnDeleted, id, nil)
	return nil
}

// Epics

func (s *BoardService) ListEpics(ctx context.Context) ([]models.Epic, error) {
	items, err := s.Repo.ListEpics(ctx)
	if err != nil {
		return nil, mapStoreErr("list epics", err)
	}
	return items, nil
}

func (s *BoardService) GetEpic(ctx context.Context, id string) (*models.Epic, error) {
	epic, err := s.Repo.GetEpic(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get epic", err)
	}
	return epic, nil
}

func (s *BoardService) CreateEpic(ctx context.Context, req transport.CreateEpicRequest) (*models.Epic, error) {
	name, err := requireText("name", req.Name, maxEpicNameLen)
	if err != nil {
		return nil, err
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = DefaultEpicColor
	}
	if !hexColor.MatchString(color) {
		return nil, fmt.Errorf("color must be #RRGGBB: %w", ErrValidation)
	}

	epic := &models.Epic{Name: name, Description: req.Description, Color: color}
	if err := s.Repo.CreateEpic(ctx, epic); err != nil {
		return nil, mapStoreErr("create epic", err)
	}
	s.publish(ctx, events.EpicCreated, epic.ID, epic)
	return epic, nil
}

func (s *BoardService) UpdateEpic(ctx context.Context, id string, req transport.PatchEpicRequest) (*models.Epic, error) {
	fields := map[string]any{}
	if req.Name != nil {
		name, err := requireText("name", *req.Name, maxEpicNameLen)
		if err != nil {
			return nil, err
		}
		fields["name"] = name
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Color != nil {
		if !hexColor.MatchString(*req.Color) {
			return nil, fmt.Errorf("color must be #RRGGBB: %w", ErrValidation)
		}
		fields["color"] = *req.Color
	}

	epic, err := s.Repo.UpdateEpic(ctx, id, fields)
	if err != nil {
		return nil, mapStoreErr("update epic", err)
	}
	s.publish(ctx, events.EpicUpdated, epic.ID, epic)
	return epic, nil
}

func (s *BoardService) DeleteEpic(ctx context.Context, id string) error {
	if err := s.Repo.DeleteEpic(ctx, id); err != nil {
		return mapStoreErr("delete epic", err)
	}
	s.publish(ctx, events.EpicDeleted, id, nil)
	return nil
}

// Tasks

func (s *BoardService) ListTasks(ctx context.Context, f repo.TaskFilter, offset, limit int) (int64, []models.Task, error) {
	total, items, err := s.Repo.ListTasks(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, mapStoreErr("list tasks", err)
	}
	return total, items, nil
}

func (s *BoardService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.Repo.GetTask(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get task", err)
	}
	return task, nil
}

func (s *BoardService) checkColumn(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("columnId is required: %w", ErrValidation)
	}
	if _, err := s.Repo.GetColumn(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("column %s does not exist: %w", id, ErrValidation)
		}
		return fmt.Errorf("get column: %w", err)
	}
	return nil
}

func (s *BoardService) checkEpic(ctx context.Context, id string) error {
	if _, err := s.Repo.GetEpic(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("epic %s does not exist: %w", id, ErrValidation)
		}
		return fmt.Errorf("get epic: %w", err)
	}
	return nil
}

// CreateTask appends a task to the end of its column. createdBy is the session
// display name, or APIAuthor for static-token callers.
func (s *BoardService) CreateTask(ctx context.Context, req transport.CreateTaskRequest, createdBy string) (*models.Task, error) {
	title, err := requireText("title", req.Title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, fmt.Errorf("priority must be low, medium or high: %w", ErrValidation)
	}
	if err := s.checkColumn(ctx, req.ColumnID); err != nil {
		return nil, err
	}
	var epicID *string
	if req.EpicID != nil && *req.EpicID != "" {
		if err := s.checkEpic(ctx, *req.EpicID); err != nil {
			return nil, err
		}
		epicID = req.EpicID
	}
	if createdBy == "" {
		createdBy = APIAuthor
	}

	task := &models.Task{
		Title:       title,
		Description: req.Description,
		ColumnID:    req.ColumnID,
		EpicID:      epicID,
		Priority:    priority,
		Assignee:    strings.TrimSpace(req.Assignee),
		CreatedBy:   createdBy,
	}
	if err := s.Repo.CreateTask(ctx, task); err != nil {
		return nil, mapStoreErr("create task", err)
	}

	s.index(ctx, task)
	s.publish(ctx, events.TaskCreated, task.ID, task)
	return task, nil
}

func (s *BoardService) UpdateTask(ctx context.Context, id string, req transport.PatchTaskRequest) (*models.Task, error) {
	fields := map[string]any{}
	if req.Title != nil {
		title, err := requireText("title", *req.Title, maxTitleLen)
		if err != nil {
			return nil, err
		}
		fields["title"] = title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			return nil, fmt.Errorf("priority must be low, medium or high: %w", ErrValidation)
		}
		fields["priority"] = *req.Priority
	}
	if req.Assignee != nil {
		fields["assignee"] = strings.TrimSpace(*req.Assignee)
	}
	switch {
	case req.ClearEpic:
		fields["epic_id"] = nil
	case req.EpicID != nil && *req.EpicID != "":
		if err := s.checkEpic(ctx, *req.EpicID); err != nil {
			return nil, err
		}
		fields["epic_id"] = *req.EpicID
	}

	task, err := s.Repo.UpdateTask(ctx, id, fields)
	if err != nil {
		return nil, mapStoreErr("update task", err)
	}

	s.index(ctx, task)
	s.publish(ctx, events.TaskUpdated, task.ID, task)
	return task, nil
}

func (s *BoardService) MoveTask(ctx context.Context, id string, req transport.MoveTaskRequest) (*models.Task, error) {
	if err := s.checkColumn(ctx, req.ColumnID); err != nil {
		return nil, err
	}
	task, err := s.Repo.MoveTask(ctx, id, req.ColumnID, req.Position)
	if err != nil {
		return nil, mapStoreErr("move task", err)
	}

	s.index(ctx, task)
	s.publish(ctx, events.TaskMoved, task.ID, map[string]any{
		"columnId": task.ColumnID,
		"position": task.Position,
	})
	return task, nil
}

func (s *BoardService) DeleteTask(ctx context.Context, id string) error {
	task, err := s.Repo.DeleteTask(ctx, id)
	if err != nil {
		return mapStoreErr("delete task", err)
	}
	s.unindex(ctx, id)
	s.publish(ctx, events.TaskDeleted, id, map[string]any{"columnId": task.ColumnID})
	return nil
}

// SearchTasks queries the search index and falls back to the database when the index
// is unavailable.
func (s *BoardService) SearchTasks(ctx context.Context, q string, offset, limit int) (int64, []models.Task, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, fmt.Errorf("query is required: %w", ErrValidation)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, q, offset, limit)
		if err == nil {
			items, err := s.Repo.TasksByIDs(ctx, ids)
			if err != nil {
				return 0, nil, mapStoreErr("load search hits", err)
			}
			return total, items, nil
		}
		if !errors.Is(err, search.ErrDisabled) {
			logging.FromContext(ctx).Warn("search_index_failed", "reason", "falling back to database", "error", err)
		}
	}

	total, items, err := s.Repo.SearchTasks(ctx, q, offset, limit)
	if err != nil {
		return 0, nil, mapStoreErr("search tasks", err)
	}
	return total, items, nil
}

// Comments and images

func (s *BoardService) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	if _, err := s.Repo.GetTask(ctx, taskID); err != nil {
		return nil, mapStoreErr("get task", err)
	}
	items, err := s.Repo.ListComments(ctx, taskID)
	if err != nil {
		return nil, mapStoreErr("list comments", err)
	}
	return items, nil
}

func (s *BoardService) AddComment(ctx context.Context, taskID, author string, req transport.CommentRequest) (*models.Comment, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, fmt.Errorf("body is required: %w", ErrValidation)
	}
	if _, err := s.Repo.GetTask(ctx, taskID); err != nil {
		return nil, mapStoreErr("get task", err)
	}
	if author == "" {
		author = APIAuthor
	}

	c := &models.Comment{TaskID: taskID, Author: author, Body: req.Body}
	if err := s.Repo.CreateComment(ctx, c); err != nil {
		return nil, mapStoreErr("create comment", err)
	}
	s.publish(ctx, events.CommentAdded, c.ID, c)
	return c, nil
}

func (s *BoardService) DeleteComment(ctx context.Context, id string) error {
	c, err := s.Repo.DeleteComment(ctx, id)
	if err != nil {
		return mapStoreErr("delete comment", err)
	}
	s.publish(ctx, events.CommentDeleted, id, map[string]any{"taskId": c.TaskID})
	return nil
}

func validImageURL(raw string) bool {
	if raw == "" || len(raw) > maxURLLen {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (s *BoardService) AddImage(ctx context.Context, taskID string, req transport.ImageRequest) (*models.TaskImage, error) {
	raw := strings.TrimSpace(req.URL)
	if !validImageURL(raw) {
		return nil, fmt.Errorf("url must be an absolute http(s) URL: %w", ErrValidation)
	}
	caption := strings.TrimSpace(req.Caption)
	if utf8.RuneCountInString(caption) > maxCaptionLen {
		return nil, fmt.Errorf("caption exceeds %d characters: %w", maxCaptionLen, ErrValidation)
	}
	if _, err := s.Repo.GetTask(ctx, taskID); err != nil {
		return nil, mapStoreErr("get task", err)
	}

	img := &models.TaskImage{TaskID: taskID, URL: raw, Caption: caption}
	if err := s.Repo.CreateImage(ctx, img); err != nil {
		return nil, mapStoreErr("create image", err)
	}
	s.publish(ctx, events.ImageAdded, img.ID, img)
	return img, nil
}

func (s *BoardService) DeleteImage(ctx context.Context, id string) error {
	img, err := s.Repo.DeleteImage(ctx, id)
	if err != nil {
		return mapStoreErr("delete image", err)
	}
	s.publish(ctx, events.ImageDeleted, id, map[string]any{"taskId": img.TaskID})
	return nil
}
