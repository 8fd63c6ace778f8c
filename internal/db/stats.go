package db

import (
	"context"
	"fmt"

	"taskmaster/internal/models"
)

type countRow struct {
	Key   string `db:"label"`
	Count int64  `db:"n"`
}

// Stats rolls the todos table up for the dashboard. Every folder appears in
// FolderStats, including empty ones.
func (d *DB) Stats(ctx context.Context) (*models.Stats, error) {
	s := &models.Stats{}

	totals := []struct {
		dst   *int64
		query string
	}{
		{&s.Total, `SELECT COUNT(*) FROM todos`},
		{&s.Completed, `SELECT COUNT(*) FROM todos WHERE completed = 1`},
		{&s.Pending, `SELECT COUNT(*) FROM todos WHERE completed = 0`},
	}
	for _, t := range totals {
		if err := d.conn.GetContext(ctx, t.dst, t.query); err != nil {
			return nil, fmt.Errorf("count todos: %w", err)
		}
	}

	var err error
	if s.PriorityStats, err = d.groupCounts(ctx, `
		SELECT COALESCE(priority, 'medium') AS label, COUNT(*) AS n
		FROM todos GROUP BY 1`); err != nil {
		return nil, fmt.Errorf("priority stats: %w", err)
	}
	if s.CategoryStats, err = d.groupCounts(ctx, `
		SELECT COALESCE(category, 'general') AS label, COUNT(*) AS n
		FROM todos GROUP BY 1`); err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	if s.FolderStats, err = d.groupCounts(ctx, `
		SELECT f.name AS label, COUNT(t.id) AS n
		FROM folders f
		LEFT JOIN todos t ON f.id = t.folder_id
		GROUP BY f.id`); err != nil {
		return nil, fmt.Errorf("folder stats: %w", err)
	}
	return s, nil
}

func (d *DB) groupCounts(ctx context.Context, query string) (map[string]int64, error) {
	var rows []countRow
	if err := d.conn.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] += r.Count
	}
	return out, nil
}
