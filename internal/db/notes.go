package db

import (
	"context"
	"strings"

	"taskmaster/internal/models"
)

// Notes
func (d *DB) ListNotes(ctx context.Context) ([]models.Note, error) {
	notes := []models.Note{}
	err := d.conn.SelectContext(ctx, &notes, `
		SELECT id, content, created_at, updated_at
		FROM notes
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (d *DB) CreateNote(ctx context.Context, content string) (int64, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, ErrContentRequired
	}
	res, err := d.conn.ExecContext(ctx, `INSERT INTO notes (content) VALUES (?)`, content)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) UpdateNote(ctx context.Context, id int64, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrContentRequired
	}
	return d.execOne(ctx, `UPDATE notes SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, content, id)
}

func (d *DB) DeleteNote(ctx context.Context, id int64) error {
	return d.execOne(ctx, `DELETE FROM notes WHERE id = ?`, id)
}
