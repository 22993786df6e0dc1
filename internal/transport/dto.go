package transport

import "time"

type LoginRequest struct {
	Code string `json:"code"`
}

type LoginResponse struct {
	Success bool `json:"success"`
	IsAdmin bool `json:"isAdmin"`
}

type SessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	IsAdmin       *bool  `json:"isAdmin,omitempty"`
	Name          string `json:"name,omitempty"`
	NeedsSetup    bool   `json:"needsSetup,omitempty"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreatePasscodeRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

type PasscodeView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	IsAdmin    bool       `json:"isAdmin"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt"`
}

type ColumnRequest struct {
	Name string `json:"name"`
}

type CreateEpicRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type PatchEpicRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

type CreateTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ColumnID    string  `json:"columnId"`
	EpicID      *string `json:"epicId"`
	Priority    string  `json:"priority"`
	Assignee    string  `json:"assignee"`
}

// PatchTaskRequest leaves nil fields untouched. ClearEpic detaches the task from its epic.
type PatchTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	EpicID      *string `json:"epicId"`
	ClearEpic   bool    `json:"clearEpic"`
	Priority    *string `json:"priority"`
	Assignee    *string `json:"assignee"`
}

type MoveTaskRequest struct {
	ColumnID string `json:"columnId"`
	Position int    `json:"position"`
}

type CommentRequest struct {
	Body string `json:"body"`
}

type ImageRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}
