package models

import (
	"encoding/json"
	"time"
)

const (
	DefaultFolderID    int64 = 1
	DefaultFolderName        = "General"
	DefaultFolderColor       = "#667eea"
	DefaultPriority          = "medium"
	DefaultCategory          = "general"
)

const (
	KanbanTodo  = "todo"
	KanbanDoing = "doing"
	KanbanDone  = "done"
)

func ValidKanbanStatus(s string) bool {
	switch s {
	case KanbanTodo, KanbanDoing, KanbanDone:
		return true
	}
	return false
}

type Folder struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Color          string    `json:"color" db:"color"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	TodoCount      int64     `json:"todo_count" db:"todo_count"`
	CompletedCount int64     `json:"completed_count" db:"completed_count"`
}

type Todo struct {
	ID           int64      `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Completed    bool       `json:"completed" db:"completed"`
	Priority     string     `json:"priority" db:"priority"`
	Category     string     `json:"category" db:"category"`
	FolderID     *int64     `json:"folder_id" db:"folder_id"`
	FolderName   string     `json:"folder_name" db:"folder_name"`
	FolderColor  string     `json:"folder_color" db:"folder_color"`
	KanbanStatus string     `json:"kanban_status" db:"kanban_status"`
	AddedToToday bool       `json:"added_to_today" db:"added_to_today"`
	TodayDate    *time.Time `json:"today_date" db:"today_date"`
	Archived     bool       `json:"archived" db:"archived"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type Note struct {
	ID        int64     `json:"id" db:"id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Stats struct {
	Total         int64            `json:"total"`
	Completed     int64            `json:"completed"`
	Pending       int64            `json:"pending"`
	PriorityStats map[string]int64 `json:"priority_stats"`
	CategoryStats map[string]int64 `json:"category_stats"`
	FolderStats   map[string]int64 `json:"folder_stats"`
}

// TodoFilter narrows ListTodos. Empty strings mean "no filter".
type TodoFilter struct {
	Status          string // all, completed, pending
	Search          string
	Category        string
	FolderID        *int64
	IncludeArchived bool
}

// Field is an optional JSON member that tells apart "absent", "null" and a
// value. The zero value is absent.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func Null[T any]() Field[T] {
	return Field[T]{Set: true, Null: true}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Null = true
		return nil
	}
	f.Null = false
	return json.Unmarshal(data, &f.Value)
}

// Ptr returns nil for null or absent fields.
func (f Field[T]) Ptr() *T {
	if !f.Set || f.Null {
		return nil
	}
	v := f.Value
	return &v
}

// NewTodo carries the fields accepted on creation. Nil members take the
// defaults from the data model.
type NewTodo struct {
	Title        string           `json:"title" validate:"required"`
	Description  string           `json:"description"`
	Priority     string           `json:"priority"`
	Category     string           `json:"category"`
	FolderID     Field[int64]     `json:"folder_id"`
	KanbanStatus string           `json:"kanban_status" validate:"omitempty,oneof=todo doing done"`
	AddedToToday bool             `json:"added_to_today"`
	TodayDate    Field[time.Time] `json:"today_date"`
	Archived     bool             `json:"archived"`
}

// TodoPatch is a partial update: only members that are set change.
type TodoPatch struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Completed    *bool            `json:"completed"`
	Priority     *string          `json:"priority"`
	Category     *string          `json:"category"`
	FolderID     Field[int64]     `json:"folder_id"`
	KanbanStatus *string          `json:"kanban_status" validate:"omitempty,oneof=todo doing done"`
	AddedToToday *bool            `json:"added_to_today"`
	TodayDate    Field[time.Time] `json:"today_date"`
	Archived     *bool            `json:"archived"`
}

func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Priority == nil && p.Category == nil && !p.FolderID.Set &&
		p.KanbanStatus == nil && p.AddedToToday == nil && !p.TodayDate.Set &&
		p.Archived == nil
}

// Normalize applies the coupled-field rules so a patch can never leave a
// todo with kanban "done" but not archived, or in Today without a date.
func (p TodoPatch) Normalize(now time.Time) TodoPatch {
	yes, no := true, false
	done, todo := KanbanDone, KanbanTodo

	switch {
	case p.KanbanStatus != nil && *p.KanbanStatus == KanbanDone:
		p.Completed = &yes
		p.Archived = &yes
	case p.Archived != nil && *p.Archived:
		p.Completed = &yes
		p.KanbanStatus = &done
	case p.Archived != nil && !*p.Archived:
		p.Completed = &no
		if p.KanbanStatus == nil {
			p.KanbanStatus = &todo
		}
	case p.Completed != nil && !*p.Completed:
		// Reopening leaves the done column and the archive.
		p.Archived = &no
		if p.KanbanStatus == nil {
			p.KanbanStatus = &todo
		}
	case p.KanbanStatus != nil:
		p.Archived = &no
	}

	if p.AddedToToday != nil {
		if *p.AddedToToday {
			if !p.TodayDate.Set || p.TodayDate.Null {
				p.TodayDate = Value(now)
			}
		} else {
			p.TodayDate = Null[time.Time]()
		}
	} else if p.TodayDate.Set {
		// A date alone moves the todo in or out of Today.
		in := !p.TodayDate.Null
		p.AddedToToday = &in
	}
	return p
}

// Normalize fills defaults and applies the same coupling rules as
// TodoPatch.Normalize.
func (n NewTodo) Normalize(now time.Time) NewTodo {
	if n.Priority == "" {
		n.Priority = DefaultPriority
	}
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	if !n.FolderID.Set {
		n.FolderID = Value(DefaultFolderID)
	}
	if n.KanbanStatus == "" {
		n.KanbanStatus = KanbanTodo
	}
	if n.KanbanStatus == KanbanDone || n.Archived {
		n.KanbanStatus = KanbanDone
		n.Archived = true
	}
	if n.AddedToToday {
		if n.TodayDate.Ptr() == nil {
			n.TodayDate = Value(now)
		}
	} else if n.TodayDate.Ptr() != nil {
		n.AddedToToday = true
	} else {
		n.TodayDate = Field[time.Time]{}
	}
	return n
}

// Completed reports the completion flag a new todo is stored with.
func (n NewTodo) Completed() bool {
	return n.Archived
}
