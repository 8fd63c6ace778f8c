package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"taskmaster/internal/models"
)

const todoSelect = `
	SELECT t.id, t.title, COALESCE(t.description, '') AS description,
	       COALESCE(t.completed, 0) AS completed,
	       COALESCE(t.priority, 'medium') AS priority,
	       COALESCE(t.category, 'general') AS category,
	       t.folder_id,
	       COALESCE(f.name, 'General') AS folder_name,
	       COALESCE(f.color, '#667eea') AS folder_color,
	       COALESCE(t.kanban_status, 'todo') AS kanban_status,
	       COALESCE(t.added_to_today, 0) AS added_to_today,
	       t.today_date,
	       COALESCE(t.archived, 0) AS archived,
	       t.created_at, t.updated_at
	FROM todos t
	LEFT JOIN folders f ON t.folder_id = f.id`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (d *DB) ListTodos(ctx context.Context, filter models.TodoFilter) ([]models.Todo, error) {
	var (
		where []string
		args  []interface{}
	)

	switch filter.Status {
	case "completed":
		where = append(where, "t.completed = 1")
	case "pending":
		where = append(where, "t.completed = 0")
	}

	if filter.Search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(filter.Search)) + "%"
		where = append(where, `(LOWER(t.title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(t.description, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if filter.Category != "" {
		where = append(where, "t.category = ?")
		args = append(args, filter.Category)
	}

	if filter.FolderID != nil {
		where = append(where, "t.folder_id = ?")
		args = append(args, *filter.FolderID)
	}

	if !filter.IncludeArchived {
		where = append(where, "COALESCE(t.archived, 0) = 0")
	}

	query := todoSelect
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tORDER BY t.created_at DESC, t.id DESC"

	return d.selectTodos(ctx, query, args...)
}

func (d *DB) TodayTodos(ctx context.Context) ([]models.Todo, error) {
	return d.selectTodos(ctx, todoSelect+`
	WHERE t.added_to_today = 1 AND COALESCE(t.archived, 0) = 0
	ORDER BY t.today_date DESC, t.created_at DESC, t.id DESC`)
}

func (d *DB) ArchivedTodos(ctx context.Context) ([]models.Todo, error) {
	return d.selectTodos(ctx, todoSelect+`
	WHERE t.archived = 1
	ORDER BY t.updated_at DESC, t.id DESC`)
}

func (d *DB) selectTodos(ctx context.Context, query string, args ...interface{}) ([]models.Todo, error) {
	todos := []models.Todo{}
	if err := d.conn.SelectContext(ctx, &todos, query, args...); err != nil {
		return nil, err
	}
	return todos, nil
}

func (d *DB) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	var t models.Todo
	err := d.conn.GetContext(ctx, &t, todoSelect+`
	WHERE t.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) CreateTodo(ctx context.Context, in models.NewTodo) (int64, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return 0, ErrTitleRequired
	}
	if in.KanbanStatus != "" && !models.ValidKanbanStatus(in.KanbanStatus) {
		return 0, ErrInvalidStatus
	}
	in = in.Normalize(d.now())

	res, err := d.conn.ExecContext(ctx, `
		INSERT INTO todos (title, description, completed, priority, category, folder_id,
		                   kanban_status, added_to_today, today_date, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Title, in.Description, in.Completed(), in.Priority, in.Category, in.FolderID.Ptr(),
		in.KanbanStatus, in.AddedToToday, utcPtr(in.TodayDate.Ptr()), in.Archived)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateTodo applies a partial update. updated_at is refreshed even when the
// patch carries no fields.
func (d *DB) UpdateTodo(ctx context.Context, id int64, patch models.TodoPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return ErrTitleRequired
		}
		patch.Title = &title
	}
	if patch.KanbanStatus != nil && !models.ValidKanbanStatus(*patch.KanbanStatus) {
		return ErrInvalidStatus
	}
	patch = patch.Normalize(d.now())

	var (
		sets []string
		args []interface{}
	)
	set := func(column string, v interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, v)
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.FolderID.Set {
		set("folder_id", patch.FolderID.Ptr())
	}
	if patch.KanbanStatus != nil {
		set("kanban_status", *patch.KanbanStatus)
	}
	if patch.AddedToToday != nil {
		set("added_to_today", *patch.AddedToToday)
	}
	if patch.TodayDate.Set {
		set("today_date", utcPtr(patch.TodayDate.Ptr()))
	}
	if patch.Archived != nil {
		set("archived", *patch.Archived)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	return d.execOne(ctx, `UPDATE todos SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
}

func (d *DB) DeleteTodo(ctx context.Context, id int64) error {
	return d.execOne(ctx, `DELETE FROM todos WHERE id = ?`, id)
}

// ToggleTodo flips the completed flag in a single statement and returns the
// new value. Reopening a todo also takes it out of the archive and moves a
// done card back to todo; SET expressions see the row before the update.
func (d *DB) ToggleTodo(ctx context.Context, id int64) (bool, error) {
	var completed bool
	err := d.conn.QueryRowxContext(ctx, `
		UPDATE todos
		SET completed = NOT COALESCE(completed, 0),
			archived = CASE WHEN COALESCE(completed, 0) = 1 THEN 0 ELSE archived END,
			kanban_status = CASE
				WHEN COALESCE(completed, 0) = 1 AND kanban_status = 'done' THEN 'todo'
				ELSE kanban_status
			END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
		RETURNING completed`, id).Scan(&completed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return completed, nil
}

// SetKanbanStatus moves a todo between board columns. Moving to done also
// completes and archives it.
func (d *DB) SetKanbanStatus(ctx context.Context, id int64, status string) error {
	if !models.ValidKanbanStatus(status) {
		return ErrInvalidStatus
	}
	if status == models.KanbanDone {
		return d.execOne(ctx, `
			UPDATE todos
			SET kanban_status = ?, completed = 1, archived = 1, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`, status, id)
	}
	return d.execOne(ctx, `
		UPDATE todos
		SET kanban_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, status, id)
}

func (d *DB) AddToToday(ctx context.Context, id int64) error {
	return d.execOne(ctx, `
		UPDATE todos
		SET added_to_today = 1, today_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, d.now().UTC(), id)
}

func (d *DB) RemoveFromToday(ctx context.Context, id int64) error {
	return d.execOne(ctx, `
		UPDATE todos
		SET added_to_today = 0, today_date = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
}

func (d *DB) ArchiveTodo(ctx context.Context, id int64) error {
	return d.execOne(ctx, `
		UPDATE todos
		SET archived = 1, completed = 1, kanban_status = 'done', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
}

func (d *DB) UnarchiveTodo(ctx context.Context, id int64) error {
	return d.execOne(ctx, `
		UPDATE todos
		SET archived = 0, completed = 0, kanban_status = 'todo', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
}

// BatchDeleteTodos deletes every listed todo in one statement and reports how
// many rows were actually removed.
func (d *DB) BatchDeleteTodos(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrEmptyIDs
	}
	query, args, err := sqlx.In(`DELETE FROM todos WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	res, err := d.conn.ExecContext(ctx, d.conn.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res)
}

// BatchMoveTodos files every listed todo under folderID.
func (d *DB) BatchMoveTodos(ctx context.Context, ids []int64, folderID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, ErrEmptyIDs
	}
	query, args, err := sqlx.In(`
		UPDATE todos SET folder_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id IN (?)`, folderID, ids)
	if err != nil {
		return 0, err
	}

	var moved int64
	err = d.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := folderExists(ctx, tx, folderID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return err
		}
		moved, err = rowsAffected(res)
		return err
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

func (d *DB) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := d.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
