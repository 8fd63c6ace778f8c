package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskmaster/internal/models"
)

const folderSelect = `
	SELECT f.id, f.name, COALESCE(f.color, '#667eea') AS color, f.created_at,
	       COUNT(t.id) AS todo_count,
	       COALESCE(SUM(CASE WHEN t.completed = 1 THEN 1 ELSE 0 END), 0) AS completed_count
	FROM folders f
	LEFT JOIN todos t ON f.id = t.folder_id`

func (d *DB) ListFolders(ctx context.Context) ([]models.Folder, error) {
	folders := []models.Folder{}
	err := d.conn.SelectContext(ctx, &folders, folderSelect+`
		GROUP BY f.id
		ORDER BY f.created_at ASC, f.id ASC`)
	if err != nil {
		return nil, err
	}
	return folders, nil
}

func (d *DB) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	var f models.Folder
	err := d.conn.GetContext(ctx, &f, folderSelect+`
		WHERE f.id = ?
		GROUP BY f.id`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFolderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (d *DB) CreateFolder(ctx context.Context, name, color string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, ErrNameRequired
	}
	if color == "" {
		color = models.DefaultFolderColor
	}
	res, err := d.conn.ExecContext(ctx, `INSERT INTO folders (name, color) VALUES (?, ?)`, name, color)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateFolder renames and/or recolors a folder. Nil members are left alone.
func (d *DB) UpdateFolder(ctx context.Context, id int64, name, color *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return ErrNameRequired
		}
		name = &trimmed
	}
	res, err := d.conn.ExecContext(ctx, `
		UPDATE folders
		SET name = COALESCE(?, name), color = COALESCE(?, color)
		WHERE id = ?`, name, color, id)
	if err != nil {
		return err
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// DeleteFolder removes the folder and every todo filed under it, returning
// how many todos went with it.
func (d *DB) DeleteFolder(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := d.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := folderExists(ctx, tx, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM todos WHERE folder_id = ?`, id)
		if err != nil {
			return err
		}
		if removed, err = rowsAffected(res); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func folderExists(ctx context.Context, q sqlx.QueryerContext, id int64) error {
	var one int
	err := sqlx.GetContext(ctx, q, &one, `SELECT 1 FROM folders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrFolderNotFound
	}
	return err
}
