package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Passcode struct {
	ID         string     `gorm:"primaryKey;size:36"          json:"id"`
	CodeHash   string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Name       string     `gorm:"size:100;not null"           json:"name"`
	IsAdmin    bool       `gorm:"index;not null;default:false" json:"isAdmin"`
	CreatedAt  time.Time  `gorm:"not null"                    json:"createdAt"`
	LastUsedAt *time.Time `                                   json:"lastUsedAt"`
}

type Session struct {
	ID         string    `gorm:"primaryKey;size:36"`
	PasscodeID string    `gorm:"index;size:36;not null"`
	Token      string    `gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"not null"`

	Passcode Passcode `gorm:"constraint:OnDelete:CASCADE"`
}

type Column struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:100;not null"  json:"name"`
	Position  int       `gorm:"index;not null"     json:"position"`
	CreatedAt time.Time `                          json:"createdAt"`
}

type Epic struct {
	ID          string    `gorm:"primaryKey;size:36"           json:"id"`
	Name        string    `gorm:"size:200;not null"            json:"name"`
	Description string    `gorm:"type:text"                    json:"description"`
	Color       string    `gorm:"size:7;not null;default:'#6366f1'" json:"color"`
	CreatedAt   time.Time `                                    json:"createdAt"`
	UpdatedAt   time.Time `                                    json:"updatedAt"`
}

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          string    `gorm:"primaryKey;size:36"        json:"id"`
	Title       string    `gorm:"size:200;not null"         json:"title"`
	Description string    `gorm:"type:text"                 json:"description"`
	ColumnID    string    `gorm:"index;size:36;not null"    json:"columnId"`
	EpicID      *string   `gorm:"index;size:36"             json:"epicId"`
	Position    int       `gorm:"not null"                  json:"position"`
	Priority    string    `gorm:"size:10;not null;default:medium" json:"priority"`
	Assignee    string    `gorm:"size:100"                  json:"assignee"`
	CreatedBy   string    `gorm:"size:100"                  json:"createdBy"`
	CreatedAt   time.Time `                                 json:"createdAt"`
	UpdatedAt   time.Time `                                 json:"updatedAt"`

	Column   *Column     `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Epic     *Epic       `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Comments []Comment   `gorm:"constraint:OnDelete:CASCADE"  json:"comments,omitempty"`
	Images   []TaskImage `gorm:"constraint:OnDelete:CASCADE"  json:"images,omitempty"`
}

type Comment struct {
	ID        string    `gorm:"primaryKey;size:36"     json:"id"`
	TaskID    string    `gorm:"index;size:36;not null" json:"taskId"`
	Author    string    `gorm:"size:100;not null"      json:"author"`
	Body      string    `gorm:"type:text;not null"     json:"body"`
	CreatedAt time.Time `                              json:"createdAt"`
}

type TaskImage struct {
	ID        string    `gorm:"primaryKey;size:36"     json:"id"`
	TaskID    string    `gorm:"index;size:36;not null" json:"taskId"`
	URL       string    `gorm:"size:2048;not null"     json:"url"`
	Caption   string    `gorm:"size:200"               json:"caption"`
	CreatedAt time.Time `                              json:"createdAt"`
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (p *Passcode) BeforeCreate(tx *gorm.DB) error  { newID(&p.ID); return nil }
func (s *Session) BeforeCreate(tx *gorm.DB) error   { newID(&s.ID); return nil }
func (c *Column) BeforeCreate(tx *gorm.DB) error    { newID(&c.ID); return nil }
func (e *Epic) BeforeCreate(tx *gorm.DB) error      { newID(&e.ID); return nil }
func (t *Task) BeforeCreate(tx *gorm.DB) error      { newID(&t.ID); return nil }
func (c *Comment) BeforeCreate(tx *gorm.DB) error   { newID(&c.ID); return nil }
func (i *TaskImage) BeforeCreate(tx *gorm.DB) error { newID(&i.ID); return nil }

func All() []any {
	return []any{&Passcode{}, &Session{}, &Column{}, &Epic{}, &Task{}, &Comment{}, &TaskImage{}}
}
